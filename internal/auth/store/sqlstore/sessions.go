package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
)

const sessionColumns = `id, user_id, access_jti, refresh_jti, ip_hash, ip_masked, user_agent, user_agent_hash,
	device_fingerprint, risk_score, is_active, revoked_at, revoked_reason, created_at, last_activity_at, expires_at`

type sessionsRepo struct{ conn }

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.exec(ctx, `INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.UserID,
		toNullString(s.AccessTokenJTI),
		toNullString(s.RefreshTokenJTI),
		s.IPAddressHash,
		s.IPAddressMasked,
		s.UserAgent,
		s.UserAgentHash,
		s.DeviceFingerprint,
		s.RiskScore,
		boolInt(s.IsActive),
		toNullMillis(s.RevokedAt),
		toNullString(s.RevokedReason),
		toMillis(s.CreatedAt),
		toMillis(s.LastActivityAt),
		toMillis(s.ExpiresAt),
	)
	return r.mapWriteErr(err)
}

func (r *sessionsRepo) GetSession(ctx context.Context, id string) (domain.Session, error) {
	s, err := scanSession(r.queryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	return s, mapNotFound(err)
}

func (r *sessionsRepo) BindTokens(ctx context.Context, id, accessJTI, refreshJTI string, now time.Time) (bool, error) {
	return affected(r.exec(ctx, `UPDATE sessions
		SET access_jti = ?, refresh_jti = ?, last_activity_at = ?
		WHERE id = ? AND refresh_jti IS NULL AND is_active = 1 AND expires_at > ?`,
		accessJTI, refreshJTI, toMillis(now), id, toMillis(now)))
}

func (r *sessionsRepo) RotateTokens(ctx context.Context, id, presentedRefreshJTI, accessJTI, refreshJTI string, now time.Time) (bool, error) {
	return affected(r.exec(ctx, `UPDATE sessions
		SET access_jti = ?, refresh_jti = ?, last_activity_at = ?
		WHERE id = ? AND refresh_jti = ? AND is_active = 1 AND expires_at > ?`,
		accessJTI, refreshJTI, toMillis(now), id, presentedRefreshJTI, toMillis(now)))
}

func (r *sessionsRepo) TouchSession(ctx context.Context, id string, now time.Time) (bool, error) {
	return affected(r.exec(ctx, `UPDATE sessions SET last_activity_at = ?
		WHERE id = ? AND is_active = 1 AND expires_at > ? AND last_activity_at < ?`,
		toMillis(now), id, toMillis(now), toMillis(now)))
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, id, reason string, now time.Time) (bool, error) {
	return affected(r.exec(ctx, `UPDATE sessions SET is_active = 0, revoked_at = ?, revoked_reason = ?
		WHERE id = ? AND is_active = 1`,
		toMillis(now), reason, id))
}

func (r *sessionsRepo) RevokeUserSessions(ctx context.Context, userID, reason string, now time.Time) ([]string, error) {
	rows, err := r.query(ctx, `UPDATE sessions SET is_active = 0, revoked_at = ?, revoked_reason = ?
		WHERE user_id = ? AND is_active = 1 AND expires_at > ?
		RETURNING id`,
		toMillis(now), reason, userID, toMillis(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *sessionsRepo) ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]domain.Session, error) {
	rows, err := r.query(ctx, `SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ? AND is_active = 1 AND expires_at > ?
		ORDER BY last_activity_at DESC, id`,
		userID, toMillis(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return rowCount(r.exec(ctx, `DELETE FROM sessions WHERE expires_at < ?`, toMillis(now)))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (domain.Session, error) {
	var (
		s                          domain.Session
		access, refresh, reason    sql.NullString
		revokedAt                  sql.NullInt64
		active                     int
		created, activity, expires int64
	)
	err := row.Scan(
		&s.ID, &s.UserID, &access, &refresh,
		&s.IPAddressHash, &s.IPAddressMasked, &s.UserAgent, &s.UserAgentHash,
		&s.DeviceFingerprint, &s.RiskScore, &active, &revokedAt, &reason,
		&created, &activity, &expires,
	)
	if err != nil {
		return domain.Session{}, err
	}
	s.AccessTokenJTI = fromNullString(access)
	s.RefreshTokenJTI = fromNullString(refresh)
	s.IsActive = active == 1
	s.RevokedAt = fromNullMillis(revokedAt)
	s.RevokedReason = fromNullString(reason)
	s.CreatedAt = fromMillis(created)
	s.LastActivityAt = fromMillis(activity)
	s.ExpiresAt = fromMillis(expires)
	return s, nil
}
