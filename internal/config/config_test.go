package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8686, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 30, cfg.Server.ReadTimeoutSeconds)
	assert.Equal(t, 30, cfg.Server.WriteTimeoutSeconds)
	assert.Equal(t, 120, cfg.Server.IdleTimeoutSeconds)

	assert.Equal(t, "./data/fixturefox.db", cfg.Database.Path)
	assert.Equal(t, "./database/migrations", cfg.Database.MigrationsPath)

	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "", cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "info", cfg.Log.Level)

	assert.Equal(t, 60, cfg.Engine.CacheTTLMinutes)
	assert.Equal(t, 85, cfg.Engine.AutoImportThreshold)
	assert.Equal(t, 10, cfg.Engine.AutoImportMargin)

	assert.Equal(t, 15, cfg.Scheduler.FeedSweepMinutes)
	assert.Equal(t, 5, cfg.Scheduler.HealthSweepMinutes)
	assert.Equal(t, 30, cfg.Scheduler.RequestsPerMinute)
}

func TestConfigFromEnvironment(t *testing.T) {
	viper.Reset()

	t.Setenv("FIXTUREFOX_SERVER_PORT", "9090")
	t.Setenv("FIXTUREFOX_LOG_LEVEL", "debug")
	t.Setenv("FIXTUREFOX_ENGINE_CACHE_TTL_MINUTES", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30, cfg.Engine.CacheTTLMinutes)
}

func TestConfigFromFile(t *testing.T) {
	viper.Reset()

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	content := []byte(`
server:
  port: 7070
engine:
  auto_import_threshold: 90
`)
	require.NoError(t, os.WriteFile(configPath, content, 0644))

	// Load reads from the working directory
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tempDir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 90, cfg.Engine.AutoImportThreshold)
	// Unset values keep their defaults
	assert.Equal(t, 10, cfg.Engine.AutoImportMargin)
}

func TestCacheTTLDuration(t *testing.T) {
	cfg := EngineConfig{CacheTTLMinutes: 90}
	assert.Equal(t, 90*time.Minute, cfg.CacheTTL())
}
