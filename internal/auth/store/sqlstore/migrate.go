package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

// ErrDirtyMigration means a previous migration failed half way and the
// schema needs manual repair before the service can start.
var ErrDirtyMigration = errors.New("sqlstore: database schema is dirty")

// RunMigrations applies the migrations in files to driver. The migrate
// instance is not closed because that would close the shared *sql.DB.
func RunMigrations(ctx context.Context, files fs.FS, dbName string, driver database.Driver) error {
	source, err := iofs.New(files, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return err
	}

	if _, dirty, err := m.Version(); err == nil && dirty {
		return ErrDirtyMigration
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, _, verr := m.Version()
	if verr != nil {
		return fmt.Errorf("read schema version: %w", verr)
	}
	slogx.FromContext(ctx).Info("database schema ready",
		"dialect", dbName,
		"version", version,
		"changed", err == nil,
	)
	return nil
}
