package classify

import (
	"os"
	"strings"
)

// Classifier answers protected-location queries against one fixed set
// of machine prefixes, computed at construction.
type Classifier struct {
	protectedDirs []string
}

// New builds a Classifier with the machine's protected directories
// taken from the environment, falling back to the standard locations.
func New() *Classifier {
	return NewWithProtectedDirs([]string{
		envOr("ProgramFiles", `C:\Program Files`),
		envOr("ProgramFiles(x86)", `C:\Program Files (x86)`),
		envOr("ProgramData", `C:\ProgramData`),
		envOr("SystemRoot", `C:\Windows`),
	})
}

// NewWithProtectedDirs builds a Classifier over an explicit prefix
// list. Used by tests and by callers with non-standard layouts.
func NewWithProtectedDirs(dirs []string) *Classifier {
	normalized := make([]string, 0, len(dirs))
	for _, d := range dirs {
		d = strings.TrimRight(d, `\`)
		if d != "" {
			normalized = append(normalized, strings.ToUpper(d))
		}
	}
	return &Classifier{protectedDirs: normalized}
}

// RequiresElevation reports whether the fully resolved physical path
// or registry path is a protected machine location. It must only ever
// be called after placeholder substitution, never on templates.
func (c *Classifier) RequiresElevation(resolvedPath string) bool {
	upper := strings.ToUpper(resolvedPath)

	if strings.HasPrefix(upper, `HKLM\`) || strings.HasPrefix(upper, `HKEY_LOCAL_MACHINE\`) {
		return true
	}

	for _, dir := range c.protectedDirs {
		if upper == dir || strings.HasPrefix(upper, dir+`\`) {
			return true
		}
	}
	return false
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
