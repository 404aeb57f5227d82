// Package filesystem adapts afero filesystems to the types.FS
// interface: the real OS filesystem for production and an in-memory
// tree for tests, both behind the same wrapper.
package filesystem
