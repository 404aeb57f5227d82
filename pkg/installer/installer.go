// Package installer invokes the vendor package tool for install and
// uninstall transitions. It is a thin, blocking wrapper: dispatch on
// the artifact's extension, run the tool silently, and map the raw
// exit code against the configured success set. Unrecognized
// extensions and missing artifacts fail before anything runs.
package installer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/peruse-deploy/peruse/pkg/errors"
	"github.com/peruse-deploy/peruse/pkg/filesystem"
	"github.com/peruse-deploy/peruse/pkg/internal/hashutil"
	"github.com/peruse-deploy/peruse/pkg/logging"
	"github.com/peruse-deploy/peruse/pkg/types"
)

// Commander runs one external command to completion and returns its
// exit code. Abstracted so tests never spawn processes.
type Commander interface {
	Run(name string, args []string) (int, error)
}

// Options contains configuration for the invoker
type Options struct {
	Commander Commander
	FS        types.FS

	// Logger overrides the invoker's component logger. Leave nil to
	// log through the global logger.
	Logger *zerolog.Logger
}

// Invoker runs package installers and uninstallers.
type Invoker struct {
	commander Commander
	fs        types.FS
	logger    zerolog.Logger
}

// New creates a new invoker instance
func New(opts Options) *Invoker {
	c := opts.Commander
	if c == nil {
		c = execCommander{}
	}
	f := opts.FS
	if f == nil {
		f = filesystem.NewOS()
	}
	logger := logging.GetLogger("installer")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Invoker{commander: c, fs: f, logger: logger}
}

// Install runs the artifact's install transition and returns the raw
// exit code. An exit code outside successCodes is an error.
func (i *Invoker) Install(artifact string, arguments []string, successCodes []int) (int, error) {
	return i.invoke(artifact, arguments, successCodes, false)
}

// Uninstall runs the artifact's uninstall transition.
func (i *Invoker) Uninstall(artifact string, arguments []string, successCodes []int) (int, error) {
	return i.invoke(artifact, arguments, successCodes, true)
}

// VerifyArtifact checks the artifact against an expected SHA256
// checksum. A mismatch means a corrupt or tampered payload and is
// fatal before anything runs.
func (i *Invoker) VerifyArtifact(artifact, expected string) error {
	calculated, err := hashutil.Checksum(i.fs, artifact)
	if err != nil {
		return errors.Wrapf(err, errors.ErrNotFound, "failed to checksum installer artifact %s", artifact)
	}
	if !hashutil.Matches(calculated, expected) {
		return errors.Newf(errors.ErrHashMismatch, "artifact %s has checksum %s, manifest expects %s", artifact, calculated, expected)
	}
	i.logger.Debug().Str("artifact", artifact).Str("checksum", calculated).Msg("Artifact checksum verified")
	return nil
}

func (i *Invoker) invoke(artifact string, arguments []string, successCodes []int, uninstall bool) (int, error) {
	if _, err := i.fs.Stat(artifact); err != nil {
		return -1, errors.Wrapf(err, errors.ErrNotFound, "installer artifact %s does not exist", artifact)
	}

	name, args, err := i.commandFor(artifact, arguments, uninstall)
	if err != nil {
		return -1, err
	}

	i.logger.Info().
		Str("command", name).
		Strs("args", args).
		Bool("uninstall", uninstall).
		Msg("Invoking package tool")

	code, err := i.commander.Run(name, args)
	if err != nil {
		return code, errors.Wrapf(err, errors.ErrInstallerFailed, "package tool %s failed to run", name)
	}

	if !codeAllowed(code, successCodes) {
		return code, errors.Newf(errors.ErrInstallerFailed, "package tool exited with code %d, outside the success set %v", code, successCodes)
	}

	i.logger.Info().Int("exit_code", code).Msg("Package tool completed")
	return code, nil
}

// commandFor dispatches on the artifact extension. Only .msi and .exe
// are recognized; anything else is rejected before invocation.
func (i *Invoker) commandFor(artifact string, arguments []string, uninstall bool) (string, []string, error) {
	switch strings.ToLower(filepath.Ext(artifact)) {
	case ".msi":
		mode := "/i"
		if uninstall {
			mode = "/x"
		}
		args := append([]string{mode, artifact, "/quiet", "/norestart"}, arguments...)
		return msiexecPath(), args, nil

	case ".exe":
		return artifact, arguments, nil
	}
	return "", nil, errors.Newf(errors.ErrUnsupported, "unsupported installer extension on %s", artifact)
}

func msiexecPath() string {
	if windir := os.Getenv("WINDIR"); windir != "" {
		return filepath.Join(windir, "system32", "msiexec.exe")
	}
	return "msiexec.exe"
}

func codeAllowed(code int, successCodes []int) bool {
	if len(successCodes) == 0 {
		return code == 0
	}
	for _, ok := range successCodes {
		if code == ok {
			return true
		}
	}
	return false
}
