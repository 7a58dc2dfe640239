package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/fixturefox/fixturefox/internal/config"
)

// DB is the SQLite handle backing the decision state: source health, the
// rejection ledger, pending imports, the event library, and profiles.
type DB struct {
	*sql.DB
	logger *logrus.Logger
}

// Initialize opens the SQLite database and brings the schema up to date.
// WAL keeps feed-sweep reads from blocking the write path; the busy timeout
// covers writer contention between the sweep loops and the HTTP surface.
func Initialize(cfg config.DatabaseConfig, logger *logrus.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := cfg.Path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite allows a single writer; a small pool serves the sweep loops
	// and the HTTP handlers without piling up blocked connections
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)

	db := &DB{DB: sqlDB, logger: logger}

	if err := db.migrate(cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.WithField("path", cfg.Path).Info("Database ready")
	return db, nil
}

// migrate applies pending schema migrations from the configured directory.
// An empty or missing directory leaves the schema untouched.
func (db *DB) migrate(migrationsPath string) error {
	if migrationsPath == "" {
		return nil
	}
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		db.logger.WithField("path", migrationsPath).Warn("Migrations directory not found, schema left as is")
		return nil
	}

	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return err
	}
	db.logger.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info("Schema up to date")

	return nil
}

// Health checks the database connection health
func (db *DB) Health() error {
	return db.Ping()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
