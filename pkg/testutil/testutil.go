// Package testutil provides shared fixtures for peruse tests: a
// seeded machine (memory registry plus memory filesystem) with any
// mix of real and pseudo profiles, and canned execution contexts.
package testutil

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/peruse-deploy/peruse/pkg/filesystem"
	"github.com/peruse-deploy/peruse/pkg/profiles"
	"github.com/peruse-deploy/peruse/pkg/registry"
	"github.com/peruse-deploy/peruse/pkg/types"
)

// Common fixture SIDs: one domain-joined account, one cloud-identity
// account, and one pseudo-account that must never fan out.
const (
	DomainSID = "S-1-5-21-1004336348-1177238915-682003330-1001"
	CloudSID  = "S-1-12-1-1943430372-1249052806-2496021943-3034400218"
	PseudoSID = "S-1-5-19"
)

// Machine is an in-memory stand-in for one host: its registry and
// filesystem, pre-wired into a profile enumerator.
type Machine struct {
	Registry *registry.Memory
	FS       types.FS
	Enum     *profiles.Enumerator
}

// NewMachine creates an empty machine.
func NewMachine(t *testing.T) *Machine {
	t.Helper()
	reg := registry.NewMemory()
	fs := filesystem.NewMemory()
	return &Machine{
		Registry: reg,
		FS:       fs,
		Enum:     profiles.New(reg, fs),
	}
}

// AddProfile materializes a profile on the machine: a ProfileList
// entry, a profile directory when onDisk, and a loaded HKU hive when
// hiveLoaded.
func (m *Machine) AddProfile(t *testing.T, sid, root string, onDisk, hiveLoaded bool) {
	t.Helper()
	key := profiles.ProfileListKey + `\` + sid
	require.NoError(t, m.Registry.SetValue(key, "ProfileImagePath", types.Value{
		Type:   types.ValueExpandString,
		String: root,
	}))
	if onDisk {
		require.NoError(t, m.FS.MkdirAll(root, 0755))
	}
	if hiveLoaded {
		require.NoError(t, m.Registry.CreateKey(`HKU\` + sid))
	}
}

// NopLogger returns a logger that discards everything, for wiring
// into component Options in tests.
func NopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// SystemContext is the elevated service-account context.
func SystemContext() types.ExecutionContext {
	return types.ExecutionContext{
		IsSystemAccount: true,
		HasAdminRights:  true,
		CallerLabel:     `NT AUTHORITY\SYSTEM`,
	}
}

// SystemContextNoAdmin is a system-account token whose admin check
// failed; privilege checks must fail closed against it.
func SystemContextNoAdmin() types.ExecutionContext {
	return types.ExecutionContext{
		IsSystemAccount: true,
		HasAdminRights:  false,
		CallerLabel:     `NT AUTHORITY\SYSTEM`,
	}
}

// UserContext is an ordinary interactive, non-admin user.
func UserContext() types.ExecutionContext {
	return types.ExecutionContext{
		IsSystemAccount: false,
		HasAdminRights:  false,
		CallerLabel:     `CONTOSO\alice`,
	}
}
