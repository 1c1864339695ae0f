package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
	"github.com/aussiebroadwan/sessiond/internal/auth/store"
)

const userColumns = `id, email, name, password_hash, mfa_secret, is_active, created_at, updated_at`

type usersRepo struct{ conn }

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		strings.ToLower(u.Email),
		u.Name,
		u.PasswordHash,
		toNullString(u.MFASecret),
		boolInt(u.IsActive),
		toMillis(u.CreatedAt),
		toMillis(u.UpdatedAt),
	)
	return r.mapWriteErr(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email)))
}

func (r *usersRepo) SetUserActive(ctx context.Context, id string, active bool, now time.Time) error {
	ok, err := affected(r.exec(ctx, `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolInt(active), toMillis(now), id))
	if err == nil && !ok {
		return store.ErrNotFound
	}
	return err
}

func (r *usersRepo) SetMFASecret(ctx context.Context, id string, secret *string, now time.Time) error {
	ok, err := affected(r.exec(ctx, `UPDATE users SET mfa_secret = ?, updated_at = ? WHERE id = ?`,
		toNullString(secret), toMillis(now), id))
	if err == nil && !ok {
		return store.ErrNotFound
	}
	return err
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                domain.User
		mfa              sql.NullString
		active           int
		created, updated int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &mfa, &active, &created, &updated); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.MFASecret = fromNullString(mfa)
	u.IsActive = active == 1
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return u, nil
}
