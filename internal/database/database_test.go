package database

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixturefox/fixturefox/internal/config"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestInitialize_CreatesDatabaseFile(t *testing.T) {
	cfg := config.DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "data", "fixturefox.db"),
	}

	db, err := Initialize(cfg, testLogger())
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Health())
	assert.FileExists(t, cfg.Path)
}

func TestInitialize_MissingMigrationsDirIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DatabaseConfig{
		Path:           filepath.Join(dir, "fixturefox.db"),
		MigrationsPath: filepath.Join(dir, "no-such-dir"),
	}

	db, err := Initialize(cfg, testLogger())
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Health())
}

func TestInitialize_AppliesConfiguredMigrations(t *testing.T) {
	migrationsPath, err := filepath.Abs(filepath.Join("..", "..", "database", "migrations"))
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Path:           filepath.Join(t.TempDir(), "fixturefox.db"),
		MigrationsPath: migrationsPath,
	}

	db, err := Initialize(cfg, testLogger())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"sources", "source_health", "blocklist", "pending_imports", "events", "quality_profiles", "format_rules"} {
		var name string
		err := db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		require.NoError(t, err, table)
	}
}
