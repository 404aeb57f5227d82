// Package config loads and validates the deployment manifest: the
// package artifact to install or uninstall, the file operations, and
// the registry entry operations. Manifests are static data; nothing
// in them is executed.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/peruse-deploy/peruse/pkg/errors"
	"github.com/peruse-deploy/peruse/pkg/types"
)

// Manifest is one declarative set of machine-state changes.
type Manifest struct {
	Package  PackageSpec    `koanf:"package" toml:"package" validate:"required"`
	Files    []FileSpec     `koanf:"files" toml:"files,omitempty" validate:"dive"`
	Registry []RegistrySpec `koanf:"registry" toml:"registry,omitempty" validate:"dive"`
}

// PackageSpec names the installer artifact and how to judge its exit.
type PackageSpec struct {
	Path             string   `koanf:"path" toml:"path" validate:"required"`
	Hash             string   `koanf:"hash" toml:"hash,omitempty"`
	Arguments        []string `koanf:"arguments" toml:"arguments,omitempty"`
	SuccessExitCodes []int    `koanf:"success_exit_codes" toml:"success_exit_codes,omitempty"`
}

// FileSpec is either a placement (Source + Destination) or a removal
// (Path). The two forms are mutually exclusive.
type FileSpec struct {
	Source      string `koanf:"source" toml:"source,omitempty"`
	Destination string `koanf:"destination" toml:"destination,omitempty"`
	Path        string `koanf:"path" toml:"path,omitempty"`
}

// RegistrySpec is one registry entry operation.
type RegistrySpec struct {
	Key    string      `koanf:"key" toml:"key" validate:"required"`
	Name   string      `koanf:"name" toml:"name,omitempty"`
	Type   string      `koanf:"type" toml:"type,omitempty" validate:"omitempty,oneof=string expand-string dword qword multi-string binary"`
	Value  interface{} `koanf:"value" toml:"value,omitempty"`
	Action string      `koanf:"action" toml:"action,omitempty" validate:"omitempty,oneof=set delete-value delete-key"`
}

// validateShape enforces the constraints struct tags cannot express.
func (m *Manifest) validateShape() error {
	for i, f := range m.Files {
		placement := f.Source != "" || f.Destination != ""
		removal := f.Path != ""
		switch {
		case placement && removal:
			return errors.Newf(errors.ErrConfigValid, "files[%d]: source/destination and path are mutually exclusive", i)
		case placement && (f.Source == "" || f.Destination == ""):
			return errors.Newf(errors.ErrConfigValid, "files[%d]: placement entries need both source and destination", i)
		case !placement && !removal:
			return errors.Newf(errors.ErrConfigValid, "files[%d]: entry is empty", i)
		}
	}
	for i, r := range m.Registry {
		if r.action() == types.RegActionSet && r.Name == "" {
			return errors.Newf(errors.ErrConfigValid, "registry[%d]: set entries need a value name", i)
		}
		if r.action() == types.RegActionDeleteValue && r.Name == "" {
			return errors.Newf(errors.ErrConfigValid, "registry[%d]: delete-value entries need a value name", i)
		}
		if r.action() == types.RegActionSet {
			if _, err := r.typedValue(); err != nil {
				return errors.Wrapf(err, errors.ErrConfigValid, "registry[%d]", i)
			}
		}
	}
	return nil
}

func (r RegistrySpec) action() types.RegistryAction {
	if r.Action == "" {
		return types.RegActionSet
	}
	return types.RegistryAction(r.Action)
}

// typedValue converts the loosely typed manifest value into a typed
// registry value according to the declared type tag.
func (r RegistrySpec) typedValue() (types.Value, error) {
	valueType := types.ValueType(r.Type)
	if r.Type == "" {
		valueType = types.ValueString
	}

	switch valueType {
	case types.ValueString, types.ValueExpandString:
		s, ok := r.Value.(string)
		if !ok {
			return types.Value{}, fmt.Errorf("value for %q must be a string, got %T", valueType, r.Value)
		}
		return types.Value{Type: valueType, String: s}, nil

	case types.ValueDword, types.ValueQword:
		n, err := toUint64(r.Value)
		if err != nil {
			return types.Value{}, err
		}
		return types.Value{Type: valueType, Integer: n}, nil

	case types.ValueMultiString:
		raw, ok := r.Value.([]interface{})
		if !ok {
			return types.Value{}, fmt.Errorf("value for multi-string must be an array, got %T", r.Value)
		}
		strs := make([]string, 0, len(raw))
		for _, item := range raw {
			s, ok := item.(string)
			if !ok {
				return types.Value{}, fmt.Errorf("multi-string element must be a string, got %T", item)
			}
			strs = append(strs, s)
		}
		return types.Value{Type: valueType, Strings: strs}, nil

	case types.ValueBinary:
		s, ok := r.Value.(string)
		if !ok {
			return types.Value{}, fmt.Errorf("value for binary must be a hex string, got %T", r.Value)
		}
		b, err := decodeHex(s)
		if err != nil {
			return types.Value{}, err
		}
		return types.Value{Type: valueType, Bytes: b}, nil
	}
	return types.Value{}, fmt.Errorf("unknown value type %q", r.Type)
}

// InstallFileOps returns the file operations an install run applies.
// Package-relative sources resolve against baseDir, the directory
// holding the manifest and its payload.
func (m *Manifest) InstallFileOps(baseDir string) []types.FileOp {
	var ops []types.FileOp
	for _, f := range m.Files {
		if f.Path != "" {
			ops = append(ops, types.FileOp{
				Kind:        types.FileOpDelete,
				Destination: types.LogicalTarget(f.Path),
			})
			continue
		}
		source := f.Source
		if !isAbsPath(source) {
			source = joinPath(baseDir, source)
		}
		ops = append(ops, types.FileOp{
			Kind:        types.FileOpCopy,
			Source:      source,
			Destination: types.LogicalTarget(f.Destination),
		})
	}
	return ops
}

// ArtifactPath resolves the package artifact against baseDir when the
// manifest carries a package-relative path.
func (m *Manifest) ArtifactPath(baseDir string) string {
	if isAbsPath(m.Package.Path) {
		return m.Package.Path
	}
	return joinPath(baseDir, m.Package.Path)
}

// joinPath joins a package-relative entry onto baseDir. A Windows
// baseDir keeps backslash separators no matter which platform loaded
// the manifest.
func joinPath(baseDir, rel string) string {
	if (len(baseDir) >= 2 && baseDir[1] == ':') || strings.HasPrefix(baseDir, `\\`) {
		return strings.TrimRight(baseDir, `\`) + `\` + rel
	}
	return filepath.Join(baseDir, rel)
}

// isAbsPath recognizes Windows drive and UNC paths as absolute in
// addition to the host platform's notion, so manifests authored for
// Windows hosts resolve identically everywhere.
func isAbsPath(path string) bool {
	if filepath.IsAbs(path) {
		return true
	}
	if len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/') {
		return true
	}
	return strings.HasPrefix(path, `\\`)
}

// UninstallFileOps returns the file operations an uninstall run
// applies: every placed file is removed, and explicit removal entries
// are applied as authored.
func (m *Manifest) UninstallFileOps() []types.FileOp {
	var ops []types.FileOp
	for _, f := range m.Files {
		target := f.Destination
		if f.Path != "" {
			target = f.Path
		}
		ops = append(ops, types.FileOp{
			Kind:        types.FileOpDelete,
			Destination: types.LogicalTarget(target),
		})
	}
	return ops
}

// InstallRegistryOps returns the registry operations an install run
// applies, as authored.
func (m *Manifest) InstallRegistryOps() ([]types.RegistryOp, error) {
	var ops []types.RegistryOp
	for i, r := range m.Registry {
		op := types.RegistryOp{
			Action: r.action(),
			Key:    types.LogicalTarget(r.Key),
			Name:   r.Name,
		}
		if op.Action == types.RegActionSet {
			value, err := r.typedValue()
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigValid, "registry[%d]", i)
			}
			op.Value = value
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// UninstallRegistryOps returns the registry operations an uninstall
// run applies: entries this manifest set are deleted again, explicit
// deletions are applied as authored.
func (m *Manifest) UninstallRegistryOps() []types.RegistryOp {
	var ops []types.RegistryOp
	for _, r := range m.Registry {
		op := types.RegistryOp{
			Action: r.action(),
			Key:    types.LogicalTarget(r.Key),
			Name:   r.Name,
		}
		if op.Action == types.RegActionSet {
			op.Action = types.RegActionDeleteValue
		}
		ops = append(ops, op)
	}
	return ops
}
