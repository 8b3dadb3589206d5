package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/brandpick/apiserver/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies every pending up migration.
func Migrate(cfg config.DatabaseConfig) error {
	return runMigration(cfg, func(m *migrate.Migrate) error { return m.Up() })
}

// Rollback reverts the given number of migrations.
func Rollback(cfg config.DatabaseConfig, steps int) error {
	if steps < 1 {
		return fmt.Errorf("rollback: steps must be positive, got %d", steps)
	}
	return runMigration(cfg, func(m *migrate.Migrate) error { return m.Steps(-steps) })
}

func runMigration(cfg config.DatabaseConfig, run func(*migrate.Migrate) error) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", source, PostgresURL(cfg))
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := run(migrator); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migrate failed: %w", err)
	}
	return nil
}
