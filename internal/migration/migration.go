// Package migration applies the embedded Postgres schema of the warehouse sink.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Run applies every pending migration under an advisory lock, then marks the schema
// state active with the embedded version and checksum.
func Run(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	release, err := tryAdvisoryLock(ctx, db)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			log.Warn("release migration lock", zap.Error(err))
		}
	}()

	latest, err := LatestVersion()
	if err != nil {
		return err
	}
	checksum, err := Checksum()
	if err != nil {
		return err
	}

	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	before, err := cleanVersion(m)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	after, err := cleanVersion(m)
	if err != nil {
		return err
	}
	if after != latest {
		return fmt.Errorf("schema version mismatch after migrate: got %d want %d", after, latest)
	}

	if err := activateSchemaState(ctx, db, latest, checksum); err != nil {
		return err
	}
	log.Info("warehouse schema active",
		zap.Uint("from_version", before),
		zap.Uint("version", after),
		zap.String("checksum", checksum),
	)
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// cleanVersion returns the applied version, failing when a previous run left it dirty.
func cleanVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("database migrations are dirty at version %d", version)
	}
	return version, nil
}
