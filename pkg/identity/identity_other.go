//go:build !windows

package identity

import (
	"os"
	"os/user"

	"github.com/peruse-deploy/peruse/pkg/types"
)

type osResolver struct{}

// Resolve on non-Windows hosts always reports an ordinary,
// non-elevated caller. This keeps the CLI usable for dry runs and
// development; real deployments run on Windows.
func (osResolver) Resolve() types.ExecutionContext {
	label := os.Getenv("USER")
	if u, err := user.Current(); err == nil {
		label = u.Username
	}
	ctx := types.ExecutionContext{CallerLabel: label}
	logResolved(ctx)
	return ctx
}
