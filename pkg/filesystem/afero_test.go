package filesystem

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAferoFSRoundTrip(t *testing.T) {
	fs := NewAferoFS(afero.NewMemMapFs())

	require.NoError(t, fs.MkdirAll(`C:\Users\alice\AppData`, 0755))
	require.NoError(t, fs.WriteFile(`C:\Users\alice\AppData\settings.json`, []byte(`{}`), 0644))

	data, err := fs.ReadFile(`C:\Users\alice\AppData\settings.json`)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	require.NoError(t, fs.Remove(`C:\Users\alice\AppData\settings.json`))
	_, err = fs.Stat(`C:\Users\alice\AppData\settings.json`)
	assert.Error(t, err)
}

func TestReadFileRejectsDirectory(t *testing.T) {
	fs := NewAferoFS(afero.NewMemMapFs())
	require.NoError(t, fs.MkdirAll("payload", 0755))

	_, err := fs.ReadFile("payload")
	assert.Error(t, err)
}
