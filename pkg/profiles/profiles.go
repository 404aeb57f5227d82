// Package profiles discovers the real user profiles materialized on
// the machine. Two views exist on purpose: the filesystem view walks
// the machine's ProfileList and checks that each profile directory is
// actually on disk, while the registry view walks the hives currently
// loaded under HKEY_USERS. The views are not guaranteed to agree (a
// profile can exist on disk without a loaded hive and vice versa),
// and each resource kind must use the view that matches how the OS
// exposes that resource. Writing into an unloaded hive would land in
// a never-flushed orphan, so registry operations only ever see loaded
// hives.
package profiles

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/peruse-deploy/peruse/pkg/errors"
	"github.com/peruse-deploy/peruse/pkg/logging"
	"github.com/peruse-deploy/peruse/pkg/registry"
	"github.com/peruse-deploy/peruse/pkg/types"
)

// ProfileListKey is the machine's account-profile inventory.
const ProfileListKey = `HKLM\SOFTWARE\Microsoft\Windows NT\CurrentVersion\ProfileList`

// The two recognized SID families. Anything else (LocalSystem,
// LocalService, NetworkService, default templates) is a
// pseudo-account, never a user profile.
var (
	domainSIDPattern = regexp.MustCompile(`^S-1-5-21-\d+-\d+-\d+-\d+$`)
	cloudSIDPattern  = regexp.MustCompile(`^S-1-12-1-\d+-\d+-\d+-\d+$`)
)

// IsUserSID reports whether sid belongs to one of the two recognized
// real-account families.
func IsUserSID(sid string) bool {
	return domainSIDPattern.MatchString(sid) || cloudSIDPattern.MatchString(sid)
}

// Enumerator discovers user profiles. Results are computed fresh on
// every call; the machine state may legitimately change between the
// file phase and the registry phase of one run.
type Enumerator struct {
	reg    types.Registry
	fs     types.FS
	logger zerolog.Logger
}

// New creates an Enumerator over the given registry and filesystem.
func New(reg types.Registry, fs types.FS) *Enumerator {
	return &Enumerator{
		reg:    reg,
		fs:     fs,
		logger: logging.GetLogger("profiles"),
	}
}

// FilesystemProfiles returns profiles suitable as file-operation
// targets: ProfileList entries whose SID matches a recognized family
// AND whose profile directory exists on disk. Both checks are
// required; either failing excludes the entry. Order is deterministic
// (sorted by SID).
func (e *Enumerator) FilesystemProfiles() ([]types.UserProfile, error) {
	sids, err := e.reg.Subkeys(ProfileListKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrEnumeration, "failed to enumerate profile list")
	}

	var profiles []types.UserProfile
	for _, sid := range sids {
		if !IsUserSID(sid) {
			e.logger.Trace().Str("sid", sid).Msg("Skipping pseudo-account profile entry")
			continue
		}
		root, err := e.profileImagePath(sid)
		if err != nil {
			e.logger.Warn().Err(err).Str("sid", sid).Msg("Profile entry has no readable ProfileImagePath, excluded")
			continue
		}
		info, err := e.fs.Stat(root)
		if err != nil || !info.IsDir() {
			e.logger.Debug().Str("sid", sid).Str("root", root).Msg("Profile directory missing on disk, excluded")
			continue
		}
		hiveLoaded, _ := e.reg.KeyExists(registry.RootUsers + `\` + sid)
		profiles = append(profiles, types.UserProfile{
			SID:         sid,
			ProfileRoot: root,
			HiveLoaded:  hiveLoaded,
		})
	}
	e.logger.Debug().Int("count", len(profiles)).Msg("Enumerated filesystem profiles")
	return profiles, nil
}

// RegistryProfiles returns profiles suitable as registry-operation
// targets: hives currently loaded under HKEY_USERS whose name matches
// a recognized SID family. Disk existence is irrelevant here. Order
// is deterministic (sorted by SID).
func (e *Enumerator) RegistryProfiles() ([]types.UserProfile, error) {
	hives, err := e.reg.Subkeys(registry.RootUsers)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrEnumeration, "failed to enumerate loaded user hives")
	}

	var profiles []types.UserProfile
	for _, hive := range hives {
		if strings.HasSuffix(hive, "_Classes") {
			continue
		}
		if !IsUserSID(hive) {
			e.logger.Trace().Str("hive", hive).Msg("Skipping non-user hive")
			continue
		}
		root, _ := e.profileImagePath(hive)
		profiles = append(profiles, types.UserProfile{
			SID:         hive,
			ProfileRoot: root,
			HiveLoaded:  true,
		})
	}
	e.logger.Debug().Int("count", len(profiles)).Msg("Enumerated registry profiles")
	return profiles, nil
}

// profileImagePath reads the profile directory recorded for sid.
func (e *Enumerator) profileImagePath(sid string) (string, error) {
	value, err := e.reg.GetValue(ProfileListKey+`\`+sid, "ProfileImagePath")
	if err != nil {
		return "", err
	}
	if value.Type != types.ValueString && value.Type != types.ValueExpandString {
		return "", errors.Newf(errors.ErrEnumeration, "unexpected ProfileImagePath type %q for %s", value.Type, sid)
	}
	return value.String, nil
}
