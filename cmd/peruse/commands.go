package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/peruse-deploy/peruse/pkg/config"
	"github.com/peruse-deploy/peruse/pkg/filesystem"
	"github.com/peruse-deploy/peruse/pkg/journal"
	"github.com/peruse-deploy/peruse/pkg/profiles"
	"github.com/peruse-deploy/peruse/pkg/registry"
	"github.com/peruse-deploy/peruse/pkg/run"
)

var applyCmd = &cobra.Command{
	Use:   "apply <manifest>",
	Short: "Install the package and apply the manifest's changes",
	Long: `Apply loads the manifest, invokes the package installer, then
applies every configured file and registry operation. Per-user
targets fan out across all real profiles when running as the system
account. The first hard failure aborts the run with a non-zero exit
status.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeRun(args[0], false)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <manifest>",
	Short: "Uninstall the package and revert the manifest's changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeRun(args[0], true)
	},
}

func executeRun(manifestPath string, uninstall bool) error {
	manifest, err := config.Load(manifestPath)
	if err != nil {
		return err
	}

	checksum, err := config.Fingerprint(manifestPath)
	if err != nil {
		return err
	}

	name := filepath.Base(manifestPath)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	runner := run.New(run.Options{
		Manifest:         manifest,
		BaseDir:          filepath.Dir(manifestPath),
		Journal:          journal.New(journal.Options{}),
		JournalKey:       name,
		ManifestChecksum: checksum,
		Force:            force,
		DryRun:           dryRun,
	})

	if uninstall {
		return runner.Uninstall()
	}
	return runner.Install()
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List discovered user profiles",
	Long: `Profiles prints both enumeration views: profiles with a directory
on disk (file-operation targets) and profiles with a loaded registry
hive (registry-operation targets). The two lists can legitimately
differ.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		enum := profiles.New(registry.OS(), filesystem.NewOS())

		fsProfiles, err := enum.FilesystemProfiles()
		if err != nil {
			return err
		}
		fmt.Println("Filesystem profiles:")
		if len(fsProfiles) == 0 {
			fmt.Println("  (none)")
		}
		for _, p := range fsProfiles {
			fmt.Printf("  %s  %s  hive_loaded=%v\n", p.SID, p.ProfileRoot, p.HiveLoaded)
		}

		regProfiles, err := enum.RegistryProfiles()
		if err != nil {
			return err
		}
		fmt.Println("Registry profiles (loaded hives):")
		if len(regProfiles) == 0 {
			fmt.Println("  (none)")
		}
		for _, p := range regProfiles {
			fmt.Printf("  %s  %s\n", p.SID, p.ProfileRoot)
		}
		return nil
	},
}

var genconfigCmd = &cobra.Command{
	Use:   "genconfig",
	Short: "Print a starter manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := config.GenerateDefault()
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}
