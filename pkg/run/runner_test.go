package run

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peruse-deploy/peruse/pkg/classify"
	"github.com/peruse-deploy/peruse/pkg/config"
	"github.com/peruse-deploy/peruse/pkg/errors"
	"github.com/peruse-deploy/peruse/pkg/fanout"
	"github.com/peruse-deploy/peruse/pkg/identity"
	"github.com/peruse-deploy/peruse/pkg/installer"
	"github.com/peruse-deploy/peruse/pkg/journal"
	"github.com/peruse-deploy/peruse/pkg/testutil"
	"github.com/peruse-deploy/peruse/pkg/types"
)

type fakeCommander struct {
	exitCode int
	calls    int
}

func (f *fakeCommander) Run(name string, args []string) (int, error) {
	f.calls++
	return f.exitCode, nil
}

// fixture is a complete runnable deployment: a seeded machine, a
// staged payload, and a manifest that exercises both fan-out paths.
type fixture struct {
	machine   *testutil.Machine
	commander *fakeCommander
	manifest  *config.Manifest
	journal   *journal.Journal
	checksum  string
	force     bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	machine := testutil.NewMachine(t)
	machine.AddProfile(t, testutil.DomainSID, `C:\Users\alice`, true, true)
	machine.AddProfile(t, testutil.CloudSID, `C:\Users\bob`, true, true)
	machine.AddProfile(t, testutil.PseudoSID, `C:\Windows\ServiceProfiles\LocalService`, true, true)

	require.NoError(t, machine.FS.MkdirAll(`C:\cache\pkg\payload`, 0755))
	require.NoError(t, machine.FS.WriteFile(`C:\cache\pkg\payload\settings.json`, []byte(`{"channel":"stable"}`), 0644))
	require.NoError(t, machine.FS.WriteFile(`C:\cache\pkg\app.msi`, []byte("msi"), 0644))

	return &fixture{
		machine:   machine,
		commander: &fakeCommander{},
		manifest: &config.Manifest{
			Package: config.PackageSpec{
				Path:             "app.msi",
				SuccessExitCodes: []int{0},
			},
			Files: []config.FileSpec{
				{Source: `payload\settings.json`, Destination: `{APPDATA}\Contoso\settings.json`},
			},
			Registry: []config.RegistrySpec{
				{Key: `HKCU\Software\Contoso`, Name: "Channel", Value: "stable"},
			},
		},
	}
}

func (f *fixture) runner(t *testing.T, ctx types.ExecutionContext, dryRun bool) *Runner {
	t.Helper()
	engine := fanout.New(fanout.Options{
		FS:         f.machine.FS,
		Registry:   f.machine.Registry,
		Enumerator: f.machine.Enum,
		Classifier: classify.NewWithProtectedDirs([]string{`C:\Program Files`, `C:\ProgramData`, `C:\Windows`}),
		Logger:     testutil.NopLogger(),
	})
	invoker := installer.New(installer.Options{
		Commander: f.commander,
		FS:        f.machine.FS,
		Logger:    testutil.NopLogger(),
	})
	return New(Options{
		Manifest:         f.manifest,
		BaseDir:          `C:\cache\pkg`,
		Identity:         identity.Static{Context: ctx},
		Engine:           engine,
		Invoker:          invoker,
		Journal:          f.journal,
		JournalKey:       "contoso-app",
		ManifestChecksum: f.checksum,
		Force:            f.force,
		DryRun:           dryRun,
		Logger:           testutil.NopLogger(),
	})
}

func (f *fixture) fileExists(path string) bool {
	_, err := f.machine.FS.Stat(path)
	return err == nil
}

// Elevated system run: file and registry targets fan out across the
// real user profiles, skipping the pseudo-account.
func TestInstallAsSystemFansOut(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t, testutil.SystemContext(), false)
	assert.Equal(t, StateIdle, r.State())
	assert.False(t, r.State().Terminal())

	require.NoError(t, r.Install())
	assert.Equal(t, StateCompleted, r.State())
	assert.True(t, r.State().Terminal())
	assert.Equal(t, 1, f.commander.calls)

	assert.True(t, f.fileExists(`C:\Users\alice\AppData\Roaming\Contoso\settings.json`))
	assert.True(t, f.fileExists(`C:\Users\bob\AppData\Roaming\Contoso\settings.json`))
	assert.False(t, f.fileExists(`C:\Windows\ServiceProfiles\LocalService\AppData\Roaming\Contoso\settings.json`))

	for _, sid := range []string{testutil.DomainSID, testutil.CloudSID} {
		v, err := f.machine.Registry.GetValue(`HKU\`+sid+`\Software\Contoso`, "Channel")
		require.NoError(t, err)
		assert.Equal(t, "stable", v.String)
	}
	_, err := f.machine.Registry.GetValue(`HKU\`+testutil.PseudoSID+`\Software\Contoso`, "Channel")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

// Ordinary user run: per-user targets resolve once, against the
// caller's own locations.
func TestInstallAsUserAppliesToCallerOnly(t *testing.T) {
	f := newFixture(t)
	t.Setenv("USERPROFILE", `C:\Users\carol`)
	t.Setenv("APPDATA", `C:\Users\carol\AppData\Roaming`)
	t.Setenv("LOCALAPPDATA", `C:\Users\carol\AppData\Local`)
	r := f.runner(t, testutil.UserContext(), false)

	require.NoError(t, r.Install())
	assert.Equal(t, StateCompleted, r.State())

	assert.True(t, f.fileExists(`C:\Users\carol\AppData\Roaming\Contoso\settings.json`))
	assert.False(t, f.fileExists(`C:\Users\alice\AppData\Roaming\Contoso\settings.json`))

	v, err := f.machine.Registry.GetValue(`HKCU\Software\Contoso`, "Channel")
	require.NoError(t, err)
	assert.Equal(t, "stable", v.String)
}

// System token without admin rights: the first protected-location
// action fails with access denied and the run stops before the
// registry stage.
func TestProtectedLocationWithoutAdminAbortsRun(t *testing.T) {
	f := newFixture(t)
	f.manifest.Files = []config.FileSpec{
		{Source: `payload\settings.json`, Destination: `C:\ProgramData\Contoso\settings.json`},
	}
	r := f.runner(t, testutil.SystemContextNoAdmin(), false)

	err := r.Install()
	assert.True(t, errors.IsErrorCode(err, errors.ErrAccessDenied))
	assert.Equal(t, StateFailed, r.State())
	assert.True(t, r.State().Terminal())

	assert.False(t, f.fileExists(`C:\ProgramData\Contoso\settings.json`))
	_, err = f.machine.Registry.GetValue(`HKU\`+testutil.DomainSID+`\Software\Contoso`, "Channel")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound), "registry stage must not run after the file stage fails")
}

// System token without admin rights: a machine-root registry set is
// denied and the remaining registry entries are never attempted.
func TestMachineRegistryWriteWithoutAdminAbortsRun(t *testing.T) {
	f := newFixture(t)
	f.manifest.Files = nil
	f.manifest.Registry = []config.RegistrySpec{
		{Key: `HKLM\SOFTWARE\Contoso`, Name: "InstallDir", Value: `C:\Program Files\Contoso`},
		{Key: `HKCU\Software\Contoso`, Name: "Channel", Value: "stable"},
	}
	r := f.runner(t, testutil.SystemContextNoAdmin(), false)

	err := r.Install()
	assert.True(t, errors.IsErrorCode(err, errors.ErrAccessDenied))
	assert.Equal(t, StateFailed, r.State())

	exists, regErr := f.machine.Registry.KeyExists(`HKLM\SOFTWARE\Contoso`)
	require.NoError(t, regErr)
	assert.False(t, exists)
	for _, sid := range []string{testutil.DomainSID, testutil.CloudSID} {
		_, err := f.machine.Registry.GetValue(`HKU\`+sid+`\Software\Contoso`, "Channel")
		assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound), "later entries must not be attempted")
	}
}

func TestInstallerFailureStopsBeforeFileStage(t *testing.T) {
	f := newFixture(t)
	f.commander.exitCode = 1603
	r := f.runner(t, testutil.SystemContext(), false)

	err := r.Install()
	assert.True(t, errors.IsErrorCode(err, errors.ErrInstallerFailed))
	assert.Equal(t, StateFailed, r.State())
	assert.False(t, f.fileExists(`C:\Users\alice\AppData\Roaming\Contoso\settings.json`))
}

func TestUninstallRemovesPlacedState(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t, testutil.SystemContext(), false)
	require.NoError(t, r.Install())

	f.commander.calls = 0
	r = f.runner(t, testutil.SystemContext(), false)
	require.NoError(t, r.Uninstall())
	assert.Equal(t, StateCompleted, r.State())
	assert.Equal(t, 1, f.commander.calls)

	assert.False(t, f.fileExists(`C:\Users\alice\AppData\Roaming\Contoso\settings.json`))
	assert.False(t, f.fileExists(`C:\Users\bob\AppData\Roaming\Contoso\settings.json`))
	for _, sid := range []string{testutil.DomainSID, testutil.CloudSID} {
		_, err := f.machine.Registry.GetValue(`HKU\`+sid+`\Software\Contoso`, "Channel")
		assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
	}
}

// Uninstall of already-absent state completes cleanly.
func TestUninstallIsIdempotent(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t, testutil.SystemContext(), false)

	require.NoError(t, r.Uninstall())
	assert.Equal(t, StateCompleted, r.State())
}

func TestDryRunTouchesNothing(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t, testutil.SystemContext(), true)

	require.NoError(t, r.Install())
	assert.Equal(t, StateCompleted, r.State())
	assert.Zero(t, f.commander.calls)
	assert.False(t, f.fileExists(`C:\Users\alice\AppData\Roaming\Contoso\settings.json`))
	_, err := f.machine.Registry.GetValue(`HKU\`+testutil.DomainSID+`\Software\Contoso`, "Channel")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestJournalSkipsUnchangedManifest(t *testing.T) {
	f := newFixture(t)
	f.journal = journal.New(journal.Options{
		FS:     f.machine.FS,
		Root:   `C:\ProgramData\peruse\state`,
		Logger: testutil.NopLogger(),
	})
	f.checksum = "sha256:v1"

	r := f.runner(t, testutil.SystemContext(), false)
	require.NoError(t, r.Install())
	assert.Equal(t, 1, f.commander.calls)

	r = f.runner(t, testutil.SystemContext(), false)
	require.NoError(t, r.Install())
	assert.Equal(t, StateCompleted, r.State())
	assert.Equal(t, 1, f.commander.calls, "unchanged manifest must not re-run the installer")

	// A changed manifest runs again.
	f.checksum = "sha256:v2"
	r = f.runner(t, testutil.SystemContext(), false)
	require.NoError(t, r.Install())
	assert.Equal(t, 2, f.commander.calls)
}

func TestForceReappliesRecordedManifest(t *testing.T) {
	f := newFixture(t)
	f.journal = journal.New(journal.Options{
		FS:     f.machine.FS,
		Root:   `C:\ProgramData\peruse\state`,
		Logger: testutil.NopLogger(),
	})
	f.checksum = "sha256:v1"

	r := f.runner(t, testutil.SystemContext(), false)
	require.NoError(t, r.Install())

	f.force = true
	r = f.runner(t, testutil.SystemContext(), false)
	require.NoError(t, r.Install())
	assert.Equal(t, 2, f.commander.calls)
}

func TestUninstallClearsJournalRecord(t *testing.T) {
	f := newFixture(t)
	f.journal = journal.New(journal.Options{
		FS:     f.machine.FS,
		Root:   `C:\ProgramData\peruse\state`,
		Logger: testutil.NopLogger(),
	})
	f.checksum = "sha256:v1"

	r := f.runner(t, testutil.SystemContext(), false)
	require.NoError(t, r.Install())
	r = f.runner(t, testutil.SystemContext(), false)
	require.NoError(t, r.Uninstall())

	r = f.runner(t, testutil.SystemContext(), false)
	require.NoError(t, r.Install())
	assert.Equal(t, 3, f.commander.calls, "install after uninstall must run again")
}

func TestHashMismatchAbortsBeforeInvocation(t *testing.T) {
	f := newFixture(t)
	f.manifest.Package.Hash = "sha256:deadbeef"
	r := f.runner(t, testutil.SystemContext(), false)

	err := r.Install()
	assert.True(t, errors.IsErrorCode(err, errors.ErrHashMismatch))
	assert.Equal(t, StateFailed, r.State())
	assert.Zero(t, f.commander.calls)
}

func TestEmptyAudienceCompletesWithoutError(t *testing.T) {
	machine := testutil.NewMachine(t)
	require.NoError(t, machine.FS.MkdirAll(`C:\cache\pkg\payload`, 0755))
	require.NoError(t, machine.FS.WriteFile(`C:\cache\pkg\payload\settings.json`, []byte("x"), 0644))
	require.NoError(t, machine.FS.WriteFile(`C:\cache\pkg\app.msi`, []byte("msi"), 0644))

	f := &fixture{
		machine:   machine,
		commander: &fakeCommander{},
		manifest: &config.Manifest{
			Package: config.PackageSpec{Path: "app.msi"},
			Files: []config.FileSpec{
				{Source: `payload\settings.json`, Destination: `{APPDATA}\Contoso\settings.json`},
			},
			Registry: []config.RegistrySpec{
				{Key: `HKCU\Software\Contoso`, Name: "Channel", Value: "stable"},
			},
		},
	}
	r := f.runner(t, testutil.SystemContext(), false)

	require.NoError(t, r.Install())
	assert.Equal(t, StateCompleted, r.State())
}
