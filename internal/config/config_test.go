package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "DB_PATH", "MIGRATIONS_DIR", "CORS_ORIGINS",
		"SURFACE_SECRET", "SURFACE_TOKEN_TTL_HOURS", "FLOATING_SURFACE",
		"POPUPS_ALLOWED", "SYNC_TRANSPORT", "REDIS_ADDR", "SYNC_CHANNEL",
		"STATUS_REFRESH_SECONDS", "STATE_SYNC_TICKS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, SyncTransportMemory, cfg.SyncTransport)
	assert.True(t, cfg.FloatingSurface)
	assert.True(t, cfg.PopupsAllowed)
	assert.Equal(t, 5, cfg.StateSyncTicks)
	assert.Equal(t, 15*time.Second, cfg.StatusRefresh)
	assert.Empty(t, cfg.MigrationsDir)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", " http://a.test , ,http://b.test")
	t.Setenv("FLOATING_SURFACE", "false")
	t.Setenv("SYNC_TRANSPORT", "REDIS")
	t.Setenv("STATE_SYNC_TICKS", "not-a-number")
	t.Setenv("SURFACE_TOKEN_TTL_HOURS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.False(t, cfg.FloatingSurface)
	assert.Equal(t, SyncTransportRedis, cfg.SyncTransport)
	assert.Equal(t, 5, cfg.StateSyncTicks)
	assert.Equal(t, 2*time.Hour, cfg.SurfaceTokenTTL)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "focus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7000"
db_path: /tmp/focus.db
popups_allowed: false
redis_addr: redis:6379
status_refresh_seconds: 30
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7100", cfg.Port)
	assert.Equal(t, "/tmp/focus.db", cfg.DBPath)
	assert.False(t, cfg.PopupsAllowed)
	assert.True(t, cfg.FloatingSurface)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 30*time.Second, cfg.StatusRefresh)
}

func TestLoadRejectsBadInput(t *testing.T) {
	clearEnv(t)
	t.Setenv("SYNC_TRANSPORT", "carrier-pigeon")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	assert.ErrorContains(t, err, "read config file")

	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	_, err = Load()
	assert.ErrorContains(t, err, "parse config yaml")
}
