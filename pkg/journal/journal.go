// Package journal records which manifests have been applied on this
// host. One sentinel file per manifest holds the checksum of the
// manifest content that was applied; a re-run with an unchanged
// manifest can then be skipped.
package journal

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/peruse-deploy/peruse/pkg/errors"
	"github.com/peruse-deploy/peruse/pkg/filesystem"
	"github.com/peruse-deploy/peruse/pkg/logging"
	"github.com/peruse-deploy/peruse/pkg/types"
)

// Options contains configuration for the journal
type Options struct {
	FS types.FS

	// Root is the directory holding the sentinel files. Defaults to
	// the machine-wide state directory.
	Root string

	// Logger overrides the journal's component logger. Leave nil to
	// log through the global logger.
	Logger *zerolog.Logger
}

// Journal is a filesystem-backed applied-state store.
type Journal struct {
	fs     types.FS
	root   string
	logger zerolog.Logger
}

// New creates a new journal instance
func New(opts Options) *Journal {
	f := opts.FS
	if f == nil {
		f = filesystem.NewOS()
	}
	root := opts.Root
	if root == "" {
		root = defaultRoot()
	}
	logger := logging.GetLogger("journal")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Journal{fs: f, root: root, logger: logger}
}

// Applied reports whether name was recorded with exactly this
// checksum. A sentinel with a different checksum means the manifest
// changed since it was applied.
func (j *Journal) Applied(name, checksum string) (bool, error) {
	data, err := j.fs.ReadFile(j.sentinelPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, errors.ErrIO, "failed to read journal entry for %s", name)
	}
	return strings.TrimSpace(string(data)) == checksum, nil
}

// RecordApply writes the sentinel for name, replacing any previous
// record.
func (j *Journal) RecordApply(name, checksum string) error {
	if err := j.fs.MkdirAll(j.root, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to create journal directory %s", j.root)
	}
	if err := j.fs.WriteFile(j.sentinelPath(name), []byte(checksum+"\n"), 0644); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to write journal entry for %s", name)
	}
	j.logger.Debug().Str("name", name).Str("checksum", checksum).Msg("Recorded applied manifest")
	return nil
}

// RecordRemove deletes the sentinel for name. Absent records are a
// no-op.
func (j *Journal) RecordRemove(name string) error {
	err := j.fs.Remove(j.sentinelPath(name))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrIO, "failed to remove journal entry for %s", name)
	}
	j.logger.Debug().Str("name", name).Msg("Removed applied-manifest record")
	return nil
}

func (j *Journal) sentinelPath(name string) string {
	if (len(j.root) >= 2 && j.root[1] == ':') || strings.HasPrefix(j.root, `\\`) {
		return strings.TrimRight(j.root, `\`) + `\` + name + ".sentinel"
	}
	return filepath.Join(j.root, name+".sentinel")
}

// defaultRoot is the machine-wide state directory, falling back to a
// per-user directory when ProgramData is not available.
func defaultRoot() string {
	if pd := os.Getenv("ProgramData"); pd != "" {
		return filepath.Join(pd, "peruse", "state")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "peruse-state"
	}
	return filepath.Join(home, ".peruse", "state")
}
