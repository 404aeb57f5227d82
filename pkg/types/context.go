package types

// ExecutionContext captures who the agent is running as. It is
// resolved exactly once at process start and passed by value into
// every component; nothing mutates it after creation.
type ExecutionContext struct {
	// IsSystemAccount is true when the process token belongs to the
	// LocalSystem service account (SID S-1-5-18).
	IsSystemAccount bool

	// HasAdminRights is true when the token is a member of the
	// BUILTIN\Administrators group. When the membership check itself
	// fails this is false: privilege checks fail closed.
	HasAdminRights bool

	// CallerLabel is a human-readable account name for logs, e.g.
	// "NT AUTHORITY\SYSTEM" or "CONTOSO\alice".
	CallerLabel string
}
