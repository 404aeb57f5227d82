// Package types defines the core data model shared by all peruse
// packages: the execution context derived from the caller's security
// token, discovered user profiles, logical targets and their resolved
// per-profile actions, and the narrow filesystem/registry interfaces
// the engine is written against.
package types
