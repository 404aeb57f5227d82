package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/peruse-deploy/peruse/internal/version"
	"github.com/peruse-deploy/peruse/pkg/logging"
)

var (
	verbosity int
	dryRun    bool
	force     bool

	rootCmd = &cobra.Command{
		Use:   "peruse",
		Short: "A per-user deployment agent",
		Long: `peruse applies a declarative manifest of machine-state changes:
install or uninstall a package, place or remove files, and add or
remove registry entries. Per-user targets fan out across every real
user profile when running as the system account, and apply to the
caller's own profile otherwise.

peruse never prompts; it is built for unattended execution and
reports everything through its log.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Preview changes without executing them")
	rootCmd.PersistentFlags().BoolVar(&force, "force", false, "Apply even if the journal says the manifest already ran")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(genconfigCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print version information for peruse`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("peruse version %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}
