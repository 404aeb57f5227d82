//go:build windows

package registry

import "github.com/peruse-deploy/peruse/pkg/types"

// OS returns the registry implementation for this platform.
func OS() types.Registry {
	return NewWindows()
}
