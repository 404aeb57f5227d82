package registry

import (
	"strings"

	"github.com/peruse-deploy/peruse/pkg/errors"
)

// Canonical short root names.
const (
	RootLocalMachine = "HKLM"
	RootCurrentUser  = "HKCU"
	RootUsers        = "HKU"
	RootClassesRoot  = "HKCR"
)

var rootAliases = map[string]string{
	"HKLM":                RootLocalMachine,
	"HKEY_LOCAL_MACHINE":  RootLocalMachine,
	"HKCU":                RootCurrentUser,
	"HKEY_CURRENT_USER":   RootCurrentUser,
	"HKU":                 RootUsers,
	"HKEY_USERS":          RootUsers,
	"HKCR":                RootClassesRoot,
	"HKEY_CLASSES_ROOT":   RootClassesRoot,
}

// SplitPath splits a fully qualified registry path into its canonical
// short root name and the remaining subkey path. The subkey may be
// empty when the path names a root itself.
func SplitPath(path string) (root, subkey string, err error) {
	trimmed := strings.Trim(path, `\`)
	if trimmed == "" {
		return "", "", errors.New(errors.ErrNotFound, "empty registry path")
	}
	first := trimmed
	rest := ""
	if i := strings.Index(trimmed, `\`); i >= 0 {
		first = trimmed[:i]
		rest = trimmed[i+1:]
	}
	canonical, ok := rootAliases[strings.ToUpper(first)]
	if !ok {
		return "", "", errors.Newf(errors.ErrNotFound, "unrecognized registry root %q in %q", first, path)
	}
	return canonical, rest, nil
}

// JoinPath joins a root and subkey back into a fully qualified path.
func JoinPath(root, subkey string) string {
	if subkey == "" {
		return root
	}
	return root + `\` + subkey
}
