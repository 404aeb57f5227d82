package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peruse-deploy/peruse/pkg/filesystem"
)

func TestChecksum(t *testing.T) {
	fs := filesystem.NewMemory()
	require.NoError(t, fs.WriteFile("empty.bin", nil, 0644))

	sum, err := Checksum(fs, "empty.bin")
	require.NoError(t, err)
	assert.Equal(t, "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", sum)
}

func TestChecksumMissingFile(t *testing.T) {
	fs := filesystem.NewMemory()
	_, err := Checksum(fs, "absent.bin")
	assert.Error(t, err)
}

func TestMatches(t *testing.T) {
	sum := "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	assert.True(t, Matches(sum, sum))
	assert.True(t, Matches(sum, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"), "bare hex implies sha256")
	assert.True(t, Matches(sum, "SHA256:E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855"))
	assert.False(t, Matches(sum, "sha256:deadbeef"))
}
