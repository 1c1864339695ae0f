// Package sqlstore implements store.Store over database/sql. The SQL is
// written once with '?' placeholders; a Dialect supplied by the driver
// package adapts placeholders and error codes.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/sessiond/internal/auth/store"
)

// Dialect captures the differences between the supported databases.
type Dialect interface {
	Name() string

	// Rebind rewrites '?' placeholders into the driver's form.
	Rebind(query string) string

	// IsUniqueViolation reports whether err is a unique constraint failure.
	IsUniqueViolation(err error) bool
}

// Migrator applies the driver's embedded migrations.
type Migrator func(ctx context.Context, db *sql.DB) error

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn is what every repository shares: a querier, the dialect, and the
// *sql.DB when not already inside a transaction.
type conn struct {
	q       querier
	db      *sql.DB // nil inside a transaction
	dialect Dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.dialect.Rebind(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.dialect.Rebind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.dialect.Rebind(query), args...)
}

// atomic runs fn in a transaction, reusing the current one if any.
func (c conn) atomic(ctx context.Context, fn func(conn) error) error {
	if c.db == nil {
		return fn(c)
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(conn{q: tx, dialect: c.dialect}); err != nil {
		return err
	}
	return tx.Commit()
}

// Store is a store.Store backed by a *sql.DB.
type Store struct {
	conn
	migrate Migrator
}

var _ store.Store = (*Store)(nil)

// New wraps an open database.
func New(db *sql.DB, dialect Dialect, migrate Migrator) *Store {
	return &Store{conn: conn{q: db, db: db, dialect: dialect}, migrate: migrate}
}

// DB exposes the underlying handle, mainly for tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() string { return s.dialect.Name() }

func (s *Store) Users() store.Users             { return &usersRepo{s.conn} }
func (s *Store) Sessions() store.Sessions       { return &sessionsRepo{s.conn} }
func (s *Store) SigningKeys() store.SigningKeys { return &signingKeysRepo{s.conn} }
func (s *Store) AuditEvents() store.AuditEvents { return &auditRepo{s.conn} }

func (s *Store) ApplyMigrations(ctx context.Context) error {
	if s.migrate == nil {
		return errors.New("sqlstore: no migrator configured")
	}
	if err := s.migrate(ctx, s.db); err != nil {
		return fmt.Errorf("sqlstore: migrate %s: %w", s.dialect.Name(), err)
	}
	return nil
}

// WithTx executes fn within a transaction, automatically handling
// commit and rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(&txStore{conn: conn{q: tx, dialect: s.dialect}}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *Store) Close() error                   { return s.db.Close() }

// txStore is the Store handed to WithTx callbacks.
type txStore struct {
	conn
}

func (t *txStore) Dialect() string { return t.dialect.Name() }

func (t *txStore) Users() store.Users             { return &usersRepo{t.conn} }
func (t *txStore) Sessions() store.Sessions       { return &sessionsRepo{t.conn} }
func (t *txStore) SigningKeys() store.SigningKeys { return &signingKeysRepo{t.conn} }
func (t *txStore) AuditEvents() store.AuditEvents { return &auditRepo{t.conn} }

// Migrations must run before a transaction is opened.
func (t *txStore) ApplyMigrations(context.Context) error { return sql.ErrTxDone }

func (t *txStore) WithTx(context.Context, func(store.Store) error) error { return sql.ErrTxDone }

func (t *txStore) Ping(context.Context) error { return nil }
func (t *txStore) Close() error               { return nil }
