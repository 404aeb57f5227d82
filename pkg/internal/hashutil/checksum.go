package hashutil

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/peruse-deploy/peruse/pkg/types"
)

// Checksum calculates the SHA256 checksum of a file, prefixed with
// the algorithm name.
func Checksum(fsys types.FS, path string) (string, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data)), nil
}

// Matches compares a calculated checksum against an expected one. The
// expected form may omit the algorithm prefix; sha256 is assumed.
func Matches(calculated, expected string) bool {
	if !strings.Contains(expected, ":") {
		expected = "sha256:" + expected
	}
	return strings.EqualFold(calculated, expected)
}
