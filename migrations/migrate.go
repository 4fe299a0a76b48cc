// Package migrations applies the versioned schema under this directory.
package migrations

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
)

// RunMigrations brings the database up to the latest schema version. It is
// safe to call on every startup; an already-current database is a no-op.
func RunMigrations(db *sql.DB, migrationsPath string, logger zerolog.Logger) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite3 driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	upErr := m.Up()
	switch {
	case upErr == nil:
		version, dirty, _ := m.Version()
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Schema migrations applied")
	case errors.Is(upErr, migrate.ErrNoChange):
		logger.Debug().Str("migrationsPath", migrationsPath).Msg("Schema already current")
	default:
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}
	return nil
}
