//go:build !windows

package registry

import "github.com/peruse-deploy/peruse/pkg/types"

// OS returns the registry implementation for this platform.
// Non-Windows hosts have no real registry; an in-memory one stands in
// so development machines can exercise dry runs and tests.
func OS() types.Registry {
	return NewMemory()
}
