package types

import "io/fs"

// FS is the filesystem interface the engine and enumerator are
// written against. pkg/filesystem provides the OS implementation and
// an afero-backed one for tests.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
	Remove(name string) error
}

// Registry abstracts the machine's registry. Paths are fully
// qualified, root included, e.g. `HKLM\SOFTWARE\Contoso` or
// `HKU\S-1-5-21-...\Software\Contoso`. pkg/registry provides the
// Windows implementation and an in-memory one for tests.
type Registry interface {
	// CreateKey creates the key (and intermediate keys) if absent.
	CreateKey(path string) error

	// DeleteKey removes the key and its entire subtree. Deleting an
	// absent key is a no-op, not an error.
	DeleteKey(path string) error

	// SetValue creates the key if absent and writes the named value.
	SetValue(path, name string, value Value) error

	// GetValue reads a named value.
	GetValue(path, name string) (Value, error)

	// DeleteValue removes a single named value. An absent value or
	// key is a no-op, not an error.
	DeleteValue(path, name string) error

	// KeyExists reports whether the key is present.
	KeyExists(path string) (bool, error)

	// Subkeys lists the immediate child key names of path, sorted.
	Subkeys(path string) ([]string, error)
}
