package installer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peruse-deploy/peruse/pkg/errors"
	"github.com/peruse-deploy/peruse/pkg/filesystem"
	"github.com/peruse-deploy/peruse/pkg/testutil"
)

// fakeCommander records the invocation and returns a canned exit code.
type fakeCommander struct {
	name     string
	args     []string
	exitCode int
	err      error
	calls    int
}

func (f *fakeCommander) Run(name string, args []string) (int, error) {
	f.calls++
	f.name = name
	f.args = args
	return f.exitCode, f.err
}

func newInvoker(t *testing.T, commander *fakeCommander, artifacts ...string) *Invoker {
	t.Helper()
	fs := filesystem.NewMemory()
	for _, a := range artifacts {
		require.NoError(t, fs.WriteFile(a, []byte("payload"), 0644))
	}
	return New(Options{Commander: commander, FS: fs, Logger: testutil.NopLogger()})
}

func TestInstallMSI(t *testing.T) {
	t.Setenv("WINDIR", `C:\Windows`)
	commander := &fakeCommander{}
	invoker := newInvoker(t, commander, `C:\cache\app.msi`)

	code, err := invoker.Install(`C:\cache\app.msi`, []string{"REBOOT=ReallySuppress"}, []int{0})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	assert.Contains(t, commander.name, "msiexec")
	assert.Equal(t, []string{"/i", `C:\cache\app.msi`, "/quiet", "/norestart", "REBOOT=ReallySuppress"}, commander.args)
}

func TestUninstallMSIUsesRemoveMode(t *testing.T) {
	commander := &fakeCommander{}
	invoker := newInvoker(t, commander, `C:\cache\app.msi`)

	_, err := invoker.Uninstall(`C:\cache\app.msi`, nil, []int{0})
	require.NoError(t, err)
	assert.Equal(t, "/x", commander.args[0])
}

func TestInstallEXERunsArtifactDirectly(t *testing.T) {
	commander := &fakeCommander{}
	invoker := newInvoker(t, commander, `C:\cache\setup.exe`)

	_, err := invoker.Install(`C:\cache\setup.exe`, []string{"/S"}, []int{0})
	require.NoError(t, err)
	assert.Equal(t, `C:\cache\setup.exe`, commander.name)
	assert.Equal(t, []string{"/S"}, commander.args)
}

func TestMissingArtifactFailsBeforeInvocation(t *testing.T) {
	commander := &fakeCommander{}
	invoker := newInvoker(t, commander)

	_, err := invoker.Install(`C:\cache\absent.msi`, nil, []int{0})
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
	assert.Zero(t, commander.calls)
}

func TestUnsupportedExtensionFailsBeforeInvocation(t *testing.T) {
	commander := &fakeCommander{}
	invoker := newInvoker(t, commander, `C:\cache\app.zip`)

	_, err := invoker.Install(`C:\cache\app.zip`, nil, []int{0})
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnsupported))
	assert.Zero(t, commander.calls)
}

func TestExitCodeOutsideSuccessSet(t *testing.T) {
	commander := &fakeCommander{exitCode: 1603}
	invoker := newInvoker(t, commander, `C:\cache\app.msi`)

	code, err := invoker.Install(`C:\cache\app.msi`, nil, []int{0, 3010})
	assert.True(t, errors.IsErrorCode(err, errors.ErrInstallerFailed))
	assert.Equal(t, 1603, code)
}

func TestExitCodeInsideConfiguredSet(t *testing.T) {
	// 3010 = success, reboot required.
	commander := &fakeCommander{exitCode: 3010}
	invoker := newInvoker(t, commander, `C:\cache\app.msi`)

	code, err := invoker.Install(`C:\cache\app.msi`, nil, []int{0, 3010})
	require.NoError(t, err)
	assert.Equal(t, 3010, code)
}

func TestEmptySuccessSetMeansZeroOnly(t *testing.T) {
	commander := &fakeCommander{exitCode: 0}
	invoker := newInvoker(t, commander, `C:\cache\app.msi`)

	_, err := invoker.Install(`C:\cache\app.msi`, nil, nil)
	require.NoError(t, err)

	commander.exitCode = 2
	_, err = invoker.Install(`C:\cache\app.msi`, nil, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInstallerFailed))
}

func TestVerifyArtifact(t *testing.T) {
	commander := &fakeCommander{}
	invoker := newInvoker(t, commander, `C:\cache\app.msi`)

	// sha256 of "payload", as staged by newInvoker.
	const good = "sha256:239f59ed55e737c77147cf55ad0c1b030b6d7ee748a7426952f9b852d5a935e5"

	require.NoError(t, invoker.VerifyArtifact(`C:\cache\app.msi`, good))
	require.NoError(t, invoker.VerifyArtifact(`C:\cache\app.msi`, "239f59ed55e737c77147cf55ad0c1b030b6d7ee748a7426952f9b852d5a935e5"))

	err := invoker.VerifyArtifact(`C:\cache\app.msi`, "sha256:deadbeef")
	assert.True(t, errors.IsErrorCode(err, errors.ErrHashMismatch))

	err = invoker.VerifyArtifact(`C:\cache\absent.msi`, good)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}
