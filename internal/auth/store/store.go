package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned when a compare-and-swap style write lost
	// against a concurrent writer.
	ErrConflict = errors.New("store: conflicting update")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement it and expose sub-repositories so transactional
// and non-transactional code use the same methods.
type Store interface {
	Users() Users
	Sessions() Sessions
	SigningKeys() SigningKeys
	AuditEvents() AuditEvents

	// ApplyMigrations brings the schema up to date. Drivers embed their
	// migration files.
	ApplyMigrations(ctx context.Context) error

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise. Nested transactions are not supported.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Dialect names the backing database ("sqlite", "postgres").
	Dialect() string

	Ping(ctx context.Context) error
	Close() error
}

type Users interface {
	// CreateUser inserts a user. Returns ErrAlreadyExists when the email is
	// taken.
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks the email up case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	SetUserActive(ctx context.Context, id string, active bool, now time.Time) error
	SetMFASecret(ctx context.Context, id string, secret *string, now time.Time) error
}

// Sessions mutates session rows with single conditional statements. Every
// mutating method returns whether a row matched, so callers can tell a
// lost race from success without a read-modify-write cycle. Rows with
// is_active = 0 are never modified.
type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)

	// BindTokens sets both JTIs on a live session that has none yet.
	BindTokens(ctx context.Context, id, accessJTI, refreshJTI string, now time.Time) (bool, error)

	// RotateTokens replaces both JTIs on a live session only if the stored
	// refresh JTI still equals presentedRefreshJTI.
	RotateTokens(ctx context.Context, id, presentedRefreshJTI, accessJTI, refreshJTI string, now time.Time) (bool, error)

	// TouchSession advances last_activity_at on a live session.
	TouchSession(ctx context.Context, id string, now time.Time) (bool, error)

	// RevokeSession deactivates the session if it is still active.
	RevokeSession(ctx context.Context, id, reason string, now time.Time) (bool, error)

	// RevokeUserSessions deactivates every live session of userID and
	// returns the ids it revoked.
	RevokeUserSessions(ctx context.Context, userID, reason string, now time.Time) ([]string, error)

	// ListActiveSessions returns live sessions, most recently used first.
	ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]domain.Session, error)

	// DeleteExpiredSessions removes rows with expires_at < now.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type SigningKeys interface {
	// ListSigningKeys returns every stored key, newest first.
	ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	// CreateSigningKey inserts a key. Inserting a second active key fails
	// with ErrAlreadyExists.
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error

	// RetireActiveSigningKey demotes the active key, if any.
	RetireActiveSigningKey(ctx context.Context, retiredAt, purgeAt time.Time) (int64, error)

	// DeletePurgedSigningKeys removes retired keys with purge_at <= now.
	DeletePurgedSigningKeys(ctx context.Context, now time.Time) (int64, error)
}

type AuditEvents interface {
	// ChainHead returns the sequence number and hash of the newest event,
	// or (0, "") for an empty chain.
	ChainHead(ctx context.Context) (int64, string, error)

	// AppendAuditEvent stores e if e.Sequence and e.PreviousEventHash still
	// match the chain head, and advances the head. Returns ErrConflict when
	// another writer got there first.
	AppendAuditEvent(ctx context.Context, e domain.AuditEvent) error

	// ListAuditEvents returns up to limit events with sequence > afterSeq in
	// ascending order.
	ListAuditEvents(ctx context.Context, afterSeq int64, limit int) ([]domain.AuditEvent, error)
}
