//go:build windows

package identity

import (
	"golang.org/x/sys/windows"

	"github.com/peruse-deploy/peruse/pkg/logging"
	"github.com/peruse-deploy/peruse/pkg/types"
)

type osResolver struct{}

// Resolve queries the process token once. A failed admin-membership
// check yields HasAdminRights=false rather than an error: privilege
// checks fail closed.
func (osResolver) Resolve() types.ExecutionContext {
	logger := logging.GetLogger("identity")
	ctx := types.ExecutionContext{CallerLabel: "unknown"}

	token := windows.GetCurrentProcessToken()
	tokenUser, err := token.GetTokenUser()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to query token user, assuming ordinary user")
	} else {
		sid := tokenUser.User.Sid
		ctx.IsSystemAccount = sid.String() == LocalSystemSID
		if name, domain, _, err := sid.LookupAccount(""); err == nil {
			ctx.CallerLabel = domain + `\` + name
		} else {
			ctx.CallerLabel = sid.String()
		}
	}

	ctx.HasAdminRights = adminCheck()
	logResolved(ctx)
	return ctx
}

// adminCheck verifies whether the current process token is a member
// of BUILTIN\Administrators. Any failure reads as non-admin.
func adminCheck() bool {
	var adminSid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&adminSid)
	if err != nil {
		return false
	}
	defer windows.FreeSid(adminSid)
	isMember, err := windows.Token(0).IsMember(adminSid)
	if err != nil {
		return false
	}
	return isMember
}
