package classify

import (
	"os"

	"github.com/adrg/xdg"

	"github.com/peruse-deploy/peruse/pkg/errors"
	"github.com/peruse-deploy/peruse/pkg/types"
)

// CallerRoots resolves the invoking user's own directory roots. On
// Windows the shell environment carries all three; elsewhere the xdg
// base directories stand in so development machines behave sensibly.
func CallerRoots() (types.UserRoots, error) {
	home := os.Getenv("USERPROFILE")
	if home == "" {
		home = xdg.Home
	}
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return types.UserRoots{}, errors.Wrap(err, errors.ErrNotFound, "unable to determine caller's home directory")
		}
	}

	roaming := os.Getenv("APPDATA")
	if roaming == "" {
		roaming = xdg.DataHome
	}
	if roaming == "" {
		roaming = joinRoot(home, "AppData", "Roaming")
	}

	local := os.Getenv("LOCALAPPDATA")
	if local == "" {
		local = xdg.StateHome
	}
	if local == "" {
		local = joinRoot(home, "AppData", "Local")
	}

	return types.UserRoots{Home: home, Roaming: roaming, Local: local}, nil
}
