// Package classify is the single authority for target classification:
// which logical targets are per-user templates, how placeholder tokens
// substitute into physical paths, and which resolved locations are
// protected (admin-required). Callers never do their own string
// matching against paths; they ask this package.
package classify

import (
	"path/filepath"
	"strings"

	"github.com/peruse-deploy/peruse/pkg/types"
)

// The three recognized placeholder tokens. Recognition is exact,
// literal substring match; nothing else marks a file target as
// per-user. A fixed path that merely looks like a profile path
// (C:\Users\alice\AppData\...) does not fan out.
const (
	TokenRoaming = "{APPDATA}"
	TokenLocal   = "{LOCALAPPDATA}"
	TokenHome    = "{USERPROFILE}"
)

var tokens = []string{TokenRoaming, TokenLocal, TokenHome}

// IsPerUserTemplate reports whether the target carries at least one
// placeholder token.
func IsPerUserTemplate(target types.LogicalTarget) bool {
	s := string(target)
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

// IsPerUserKey reports whether a registry target is rooted at the
// current-user hive. HKCU is the per-user marker for entry
// operations, the way the tokens are for file operations.
func IsPerUserKey(target types.LogicalTarget) bool {
	upper := strings.ToUpper(string(target))
	return strings.HasPrefix(upper, `HKCU\`) ||
		strings.HasPrefix(upper, `HKEY_CURRENT_USER\`) ||
		upper == "HKCU" || upper == "HKEY_CURRENT_USER"
}

// Substitute replaces every placeholder token in target with the
// matching root. It is a literal token replace over a closed token
// set, never interpolation of caller-controlled text.
func Substitute(target types.LogicalTarget, roots types.UserRoots) string {
	s := string(target)
	s = strings.ReplaceAll(s, TokenRoaming, roots.Roaming)
	s = strings.ReplaceAll(s, TokenLocal, roots.Local)
	s = strings.ReplaceAll(s, TokenHome, roots.Home)
	return s
}

// SubstituteKey rewrites a current-user registry key for a specific
// profile: HKCU\Software\X becomes HKU\<sid>\Software\X. Non-HKCU
// keys are returned unchanged.
func SubstituteKey(target types.LogicalTarget, sid string) string {
	s := string(target)
	upper := strings.ToUpper(s)
	for _, prefix := range []string{`HKCU\`, `HKEY_CURRENT_USER\`} {
		if strings.HasPrefix(upper, prefix) {
			return `HKU\` + sid + `\` + s[len(prefix):]
		}
	}
	return s
}

// RootsForProfile derives a profile's three directory roots from its
// profile directory using the standard AppData layout.
func RootsForProfile(p types.UserProfile) types.UserRoots {
	return types.UserRoots{
		Home:    p.ProfileRoot,
		Roaming: joinRoot(p.ProfileRoot, "AppData", "Roaming"),
		Local:   joinRoot(p.ProfileRoot, "AppData", "Local"),
	}
}

// joinRoot appends segments to a profile directory. Windows-style
// roots keep backslash separators regardless of the host platform.
func joinRoot(root string, parts ...string) string {
	if (len(root) >= 2 && root[1] == ':') || strings.HasPrefix(root, `\\`) {
		return strings.TrimRight(root, `\`) + `\` + strings.Join(parts, `\`)
	}
	return filepath.Join(append([]string{root}, parts...)...)
}
