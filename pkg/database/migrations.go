package database

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// MigrationsTable records applied versions. It is prefixed so the service can
// share a warehouse database with other tools that also use golang-migrate.
const MigrationsTable = "member_demographics_migrations"

// Migrate applies pending migrations from source (the embedded
// migrations.FS) over a short-lived database/sql handle. Only pending
// versions run; an up-to-date schema is not an error.
func (db *DB) Migrate(source fs.FS, logger *zap.Logger) error {
	sqlDB := stdlib.OpenDB(*db.Config().ConnConfig)
	defer func() { _ = sqlDB.Close() }()

	src, err := iofs.New(source, ".")
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("Failed to close migrator", zap.NamedError("source_error", srcErr), zap.NamedError("db_error", dbErr))
		}
	}()

	before, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration version %d is dirty; fix the schema and force the version", before)
	}

	if err := m.Up(); errors.Is(err, migrate.ErrNoChange) {
		logger.Debug("Warehouse schema up to date", zap.Uint("version", before))
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	after, _, _ := m.Version()
	logger.Info("Applied warehouse migrations", zap.Uint("from_version", before), zap.Uint("to_version", after))
	return nil
}
