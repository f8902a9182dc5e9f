package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// Check verifies that the ledger schema is at the latest version.
func Check(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	// m is not closed here: closing it would close the db connection,
	// which the caller owns.

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("ledger has no schema version (needs migration)")
		}
		return fmt.Errorf("reading ledger version: %w", err)
	}
	if dirty {
		return fmt.Errorf("ledger is in dirty state at version %d (a prior migration failed)", version)
	}

	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return fmt.Errorf("reading migration files: %w", err)
	}
	defer src.Close()

	latest, err := latestVersion(src)
	if err != nil {
		return fmt.Errorf("determining latest version: %w", err)
	}

	switch {
	case version < latest:
		return fmt.Errorf("ledger is at version %d but latest is %d", version, latest)
	case version > latest:
		return fmt.Errorf("ledger version %d is ahead of binary version %d (binary needs update)", version, latest)
	}
	return nil
}

// Up runs all pending migrations.
func Up(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migrating ledger: %w", err)
	}
	return nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("creating source driver: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	return m, nil
}

// latestVersion walks the migration source to its highest version number.
func latestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			// Next errors once the last migration is reached.
			return version, nil
		}
		version = next
	}
}
