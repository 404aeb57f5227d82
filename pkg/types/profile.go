package types

// UserProfile is one real user account materialized on the machine.
// Pseudo-accounts (LocalSystem, LocalService, NetworkService, the
// Default template) are filtered out by the enumerator and never
// appear as a UserProfile.
type UserProfile struct {
	// SID is the account's security identifier. It always matches one
	// of the two recognized families: domain/local accounts
	// (S-1-5-21-...) or cloud-identity accounts (S-1-12-1-...).
	SID string

	// ProfileRoot is the profile directory on disk, e.g.
	// C:\Users\alice. For registry-view profiles the directory is not
	// guaranteed to exist.
	ProfileRoot string

	// HiveLoaded reports whether the user's registry hive is currently
	// loaded under HKEY_USERS.
	HiveLoaded bool
}

// UserRoots holds the three per-user directory roots a logical target
// may be expressed against.
type UserRoots struct {
	Home    string // C:\Users\alice
	Roaming string // C:\Users\alice\AppData\Roaming
	Local   string // C:\Users\alice\AppData\Local
}
