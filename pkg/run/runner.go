// Package run drives one deployment lifecycle transition to
// completion: invoke the package tool, apply the configured file
// operations, then the registry operations, logging every step. One
// Runner performs one run and is then done.
package run

import (
	"github.com/rs/zerolog"

	"github.com/peruse-deploy/peruse/pkg/config"
	"github.com/peruse-deploy/peruse/pkg/fanout"
	"github.com/peruse-deploy/peruse/pkg/identity"
	"github.com/peruse-deploy/peruse/pkg/installer"
	"github.com/peruse-deploy/peruse/pkg/journal"
	"github.com/peruse-deploy/peruse/pkg/logging"
	"github.com/peruse-deploy/peruse/pkg/types"
)

// Options contains configuration for the runner
type Options struct {
	Manifest *config.Manifest

	// BaseDir anchors package-relative payload sources, normally the
	// directory holding the manifest.
	BaseDir string

	Identity identity.Resolver
	Engine   *fanout.Engine
	Invoker  *installer.Invoker

	// Journal, when set, records applied manifests under JournalKey so
	// an unchanged manifest is not re-applied. ManifestChecksum is the
	// checksum of the loaded manifest file.
	Journal          *journal.Journal
	JournalKey       string
	ManifestChecksum string

	// Force re-applies even when the journal says the manifest already
	// ran.
	Force bool

	DryRun bool

	// Logger overrides the runner's component logger. Leave nil to log
	// through the global logger.
	Logger *zerolog.Logger
}

// Runner executes one install or uninstall run.
type Runner struct {
	manifest   *config.Manifest
	baseDir    string
	resolver   identity.Resolver
	engine     *fanout.Engine
	invoker    *installer.Invoker
	journal    *journal.Journal
	journalKey string
	checksum   string
	force      bool
	dryRun     bool
	logger     zerolog.Logger
	state      State
}

// New creates a new runner instance
func New(opts Options) *Runner {
	resolver := opts.Identity
	if resolver == nil {
		resolver = identity.OS()
	}
	engine := opts.Engine
	if engine == nil {
		engine = fanout.New(fanout.Options{})
	}
	invoker := opts.Invoker
	if invoker == nil {
		invoker = installer.New(installer.Options{})
	}
	logger := logging.GetLogger("run")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Runner{
		manifest:   opts.Manifest,
		baseDir:    opts.BaseDir,
		resolver:   resolver,
		engine:     engine,
		invoker:    invoker,
		journal:    opts.Journal,
		journalKey: opts.JournalKey,
		checksum:   opts.ManifestChecksum,
		force:      opts.Force,
		dryRun:     opts.DryRun,
		logger:     logger,
		state:      StateIdle,
	}
}

// State returns the runner's current lifecycle state.
func (r *Runner) State() State {
	return r.state
}

// Install performs a full install run.
func (r *Runner) Install() error {
	return r.execute(false)
}

// Uninstall performs a full uninstall run.
func (r *Runner) Uninstall() error {
	return r.execute(true)
}

func (r *Runner) execute(uninstall bool) error {
	// Identity is resolved exactly once; privilege does not change
	// within one synchronous run.
	ctx := r.resolver.Resolve()

	if !uninstall && r.alreadyApplied() {
		r.transition(StateCompleted)
		r.logger.Info().Str("manifest", r.journalKey).Msg("Manifest already applied, nothing to do")
		return nil
	}

	r.transition(StateInstalling)
	if err := r.invokePackageTool(uninstall); err != nil {
		return r.fail(err)
	}

	r.transition(StateApplyingFiles)
	fileOps := r.manifest.InstallFileOps(r.baseDir)
	if uninstall {
		fileOps = r.manifest.UninstallFileOps()
	}
	if err := r.applyFiles(fileOps, ctx); err != nil {
		return r.fail(err)
	}

	r.transition(StateApplyingRegistry)
	regOps, err := r.registryOps(uninstall)
	if err != nil {
		return r.fail(err)
	}
	if err := r.applyRegistry(regOps, ctx); err != nil {
		return r.fail(err)
	}

	r.transition(StateCompleted)
	r.recordOutcome(uninstall)
	r.logger.Info().Bool("uninstall", uninstall).Msg("Run completed successfully")
	return nil
}

// alreadyApplied consults the journal. Journal trouble never blocks a
// run; it only loses the skip optimization.
func (r *Runner) alreadyApplied() bool {
	if r.journal == nil || r.journalKey == "" || r.force || r.dryRun {
		return false
	}
	applied, err := r.journal.Applied(r.journalKey, r.checksum)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to read applied-manifest journal")
		return false
	}
	return applied
}

func (r *Runner) recordOutcome(uninstall bool) {
	if r.journal == nil || r.journalKey == "" || r.dryRun {
		return
	}
	var err error
	if uninstall {
		err = r.journal.RecordRemove(r.journalKey)
	} else {
		err = r.journal.RecordApply(r.journalKey, r.checksum)
	}
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to update applied-manifest journal")
	}
}

func (r *Runner) invokePackageTool(uninstall bool) error {
	pkg := r.manifest.Package
	artifact := r.manifest.ArtifactPath(r.baseDir)
	if r.dryRun {
		r.logger.Info().Str("artifact", artifact).Bool("uninstall", uninstall).Msg("Dry run - package tool not invoked")
		return nil
	}
	if pkg.Hash != "" {
		if err := r.invoker.VerifyArtifact(artifact, pkg.Hash); err != nil {
			return err
		}
	}
	var err error
	if uninstall {
		_, err = r.invoker.Uninstall(artifact, pkg.Arguments, pkg.SuccessExitCodes)
	} else {
		_, err = r.invoker.Install(artifact, pkg.Arguments, pkg.SuccessExitCodes)
	}
	return err
}

func (r *Runner) applyFiles(ops []types.FileOp, ctx types.ExecutionContext) error {
	for _, op := range ops {
		if r.dryRun {
			r.logger.Info().Str("kind", string(op.Kind)).Str("target", op.Destination.String()).Msg("Dry run - file operation not applied")
			continue
		}
		if _, err := r.engine.ApplyFile(op, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) applyRegistry(ops []types.RegistryOp, ctx types.ExecutionContext) error {
	for _, op := range ops {
		if r.dryRun {
			r.logger.Info().Str("action", string(op.Action)).Str("key", op.Key.String()).Msg("Dry run - registry operation not applied")
			continue
		}
		if _, err := r.engine.ApplyRegistry(op, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) registryOps(uninstall bool) ([]types.RegistryOp, error) {
	if uninstall {
		return r.manifest.UninstallRegistryOps(), nil
	}
	return r.manifest.InstallRegistryOps()
}

func (r *Runner) transition(next State) {
	r.logger.Debug().Str("from", string(r.state)).Str("to", string(next)).Msg("Run state transition")
	r.state = next
}

func (r *Runner) fail(err error) error {
	r.transition(StateFailed)
	r.logger.Error().Err(err).Msg("Run failed")
	return err
}
