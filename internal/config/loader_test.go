package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "service:\n  name: test-gw\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-gw", cfg.Service.Name)
	assert.Equal(t, "127.0.0.1:8710", cfg.Service.Listen)
	assert.Equal(t, "data/opgate.db", cfg.Storage.DBPath)
	assert.True(t, cfg.HasOpSet("sys"))
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("OPGATE_TEST_DB", "/tmp/test-opgate.db")
	path := writeConfig(t, "storage:\n  db_path: ${OPGATE_TEST_DB}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test-opgate.db", cfg.Storage.DBPath)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, "service:\n  listen: \"\"\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
