package sqlite

import (
	"context"
	"database/sql"

	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"

	"github.com/aussiebroadwan/sessiond/internal/auth/store/drivers/sqlite/migrations"
	"github.com/aussiebroadwan/sessiond/internal/auth/store/sqlstore"
)

func applyMigrations(ctx context.Context, db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	return sqlstore.RunMigrations(ctx, migrations.Migrations, "sqlite", driver)
}
