// Package identity resolves the caller's execution identity: whether
// the process runs as the LocalSystem service account and whether its
// token carries administrator rights. Resolution happens exactly once
// per run; the resulting ExecutionContext is immutable.
package identity

import (
	"github.com/peruse-deploy/peruse/pkg/logging"
	"github.com/peruse-deploy/peruse/pkg/types"
)

// LocalSystemSID is the well-known SID of the LocalSystem service
// account, the single elevated identity unattended agents run under.
const LocalSystemSID = "S-1-5-18"

// Resolver produces the ExecutionContext for the current process.
type Resolver interface {
	Resolve() types.ExecutionContext
}

// OS returns the platform resolver for the running operating system.
func OS() Resolver {
	return osResolver{}
}

// Static is a fixed-value Resolver for tests.
type Static struct {
	Context types.ExecutionContext
}

// Resolve returns the configured context unchanged.
func (s Static) Resolve() types.ExecutionContext {
	return s.Context
}

func logResolved(ctx types.ExecutionContext) {
	logger := logging.GetLogger("identity")
	logger.Debug().
		Str("caller", ctx.CallerLabel).
		Bool("system_account", ctx.IsSystemAccount).
		Bool("admin_rights", ctx.HasAdminRights).
		Msg("Resolved execution identity")
}
