package config

import (
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/peruse-deploy/peruse/pkg/errors"
	"github.com/peruse-deploy/peruse/pkg/filesystem"
	"github.com/peruse-deploy/peruse/pkg/internal/hashutil"
)

// envPrefix is stripped from environment overrides, so
// PERUSE_PACKAGE_PATH overrides package.path.
const envPrefix = "PERUSE_"

// defaults are the manifest keys that may be omitted.
var defaults = map[string]interface{}{
	"package.success_exit_codes": []int{0},
}

// Load reads, layers, and validates a manifest file. TOML and YAML
// are accepted, chosen by extension. Environment variables with the
// PERUSE_ prefix override file values.
func Load(path string) (*Manifest, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to load manifest %s", path)
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment overrides")
	}

	var m Manifest
	if err := k.Unmarshal("", &m); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse manifest %s", path)
	}

	if err := validator.New().Struct(&m); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigValid, "manifest %s is invalid", path)
	}
	if err := m.validateShape(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Fingerprint returns the checksum of the manifest file's content,
// the identity the applied-state journal keys on.
func Fingerprint(path string) (string, error) {
	sum, err := hashutil.Checksum(filesystem.NewOS(), path)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrConfigLoad, "failed to checksum manifest %s", path)
	}
	return sum, nil
}

// parserFor picks the koanf parser matching the manifest extension.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	}
	return nil, errors.Newf(errors.ErrUnsupported, "unsupported manifest extension on %s (want .toml, .yaml, or .yml)", path)
}
