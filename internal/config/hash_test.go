package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service:\n  name: x\n"), 0o644))

	hash, err := WriteChecksum(path)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	assert.NoError(t, VerifyChecksum(path))

	// Tamper with the file; verification must fail.
	require.NoError(t, os.WriteFile(path, []byte("service:\n  name: y\n"), 0o644))
	assert.Error(t, VerifyChecksum(path))
}

func TestVerifyChecksumMissingLockFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("x: 1\n"), 0o644))

	// No .b3sum file: treated as unlocked, not an error.
	assert.NoError(t, VerifyChecksum(path))
}
