package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "API_BEARER_TOKEN", "DB_PATH", "NATS_PORT", "NATS_DATA_DIR", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.False(t, cfg.EnvFileLoaded)

	want := Default()
	assert.Equal(t, want.Port, cfg.Port)
	assert.Equal(t, want.DBPath, cfg.DBPath)
	assert.Equal(t, 4222, cfg.NATSPort)
}

func TestLoadEnvFileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DB_PATH=/tmp/pack.db\nNATS_PORT=4333\n"), 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "")
	t.Setenv("NATS_PORT", "")
	// godotenv only fills unset variables.
	os.Unsetenv("DB_PATH")
	os.Unsetenv("NATS_PORT")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.EnvFileLoaded)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/tmp/pack.db", cfg.DBPath)
	assert.Equal(t, 4333, cfg.NATSPort)
}

func TestLoadRejectsBadNATSPort(t *testing.T) {
	t.Setenv("NATS_PORT", "north")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
