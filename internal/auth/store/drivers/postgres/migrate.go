package postgres

import (
	"context"
	"database/sql"

	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"

	"github.com/aussiebroadwan/sessiond/internal/auth/store/drivers/postgres/migrations"
	"github.com/aussiebroadwan/sessiond/internal/auth/store/sqlstore"
)

func applyMigrations(ctx context.Context, db *sql.DB) error {
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return err
	}
	return sqlstore.RunMigrations(ctx, migrations.Migrations, "postgres", driver)
}
