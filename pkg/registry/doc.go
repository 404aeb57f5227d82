// Package registry provides implementations of the types.Registry
// interface. On Windows it wraps the real registry via
// golang.org/x/sys/windows/registry; the in-memory implementation
// backs tests on any platform.
//
// All paths are fully qualified with a root prefix. Both long and
// short root spellings are accepted (HKEY_LOCAL_MACHINE or HKLM,
// HKEY_USERS or HKU, HKEY_CURRENT_USER or HKCU) and key lookup is
// case-insensitive, matching registry semantics.
package registry
