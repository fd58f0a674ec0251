package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("DREAMS_DB", "")
	t.Setenv("DREAMS_ADDR", "")
	t.Setenv("DREAMS_LOG_LEVEL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 15*time.Minute, cfg.GetRefreshInterval())
	assert.Equal(t, 5*time.Second, cfg.GetShutdownTimeout())
}

func TestLoadFile(t *testing.T) {
	t.Setenv("DREAMS_DB", "")
	t.Setenv("DREAMS_ADDR", "")
	t.Setenv("DREAMS_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_path: /tmp/dreams.db
server:
  addr: ":9090"
theme:
  prefers_dark: true
  refresh_interval: 1m
logging:
  level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/dreams.db", cfg.DatabasePath)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "5s", cfg.Server.ShutdownTimeout, "unset keys keep defaults")
	assert.True(t, cfg.Theme.PrefersDark)
	assert.Equal(t, time.Minute, cfg.GetRefreshInterval())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DREAMS_DB", "/data/env.db")
	t.Setenv("DREAMS_ADDR", ":7000")
	t.Setenv("DREAMS_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/data/env.db", cfg.DatabasePath)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("DREAMS_DB", "")
	t.Setenv("DREAMS_ADDR", "")
	t.Setenv("DREAMS_LOG_LEVEL", "")

	cases := map[string]string{
		"malformed yaml": "server: [",
		"bad interval":   "theme:\n  refresh_interval: soon\n",
		"bad level":      "logging:\n  level: loud\n",
		"empty db path":  "database_path: \"  \"\n",
		"bad shutdown":   "server:\n  shutdown_timeout: never\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("DREAMS_DB", "")
	t.Setenv("DREAMS_ADDR", "")
	t.Setenv("DREAMS_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Theme.PrefersDark = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestBuildLogger(t *testing.T) {
	cfg := DefaultConfig()

	logger, err := cfg.BuildLogger(false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = cfg.BuildLogger(true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
