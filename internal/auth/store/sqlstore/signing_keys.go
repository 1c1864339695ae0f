package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
)

type signingKeysRepo struct{ conn }

func (r *signingKeysRepo) ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	rows, err := r.query(ctx, `SELECT id, kid, algorithm, private_key_encrypted, created_at, retired_at, purge_at
		FROM signing_keys ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.SigningKey
	for rows.Next() {
		var (
			k                domain.SigningKey
			created          int64
			retired, purgeAt sql.NullInt64
		)
		if err := rows.Scan(&k.ID, &k.KID, &k.Algorithm, &k.PrivateKeyEncrypted, &created, &retired, &purgeAt); err != nil {
			return nil, err
		}
		k.CreatedAt = fromMillis(created)
		k.RetiredAt = fromNullMillis(retired)
		k.PurgeAt = fromNullMillis(purgeAt)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, k domain.SigningKey) error {
	_, err := r.exec(ctx, `INSERT INTO signing_keys (id, kid, algorithm, private_key_encrypted, created_at, retired_at, purge_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		k.ID, k.KID, k.Algorithm, k.PrivateKeyEncrypted, toMillis(k.CreatedAt),
		toNullMillis(k.RetiredAt), toNullMillis(k.PurgeAt))
	return r.mapWriteErr(err)
}

func (r *signingKeysRepo) RetireActiveSigningKey(ctx context.Context, retiredAt, purgeAt time.Time) (int64, error) {
	return rowCount(r.exec(ctx, `UPDATE signing_keys SET retired_at = ?, purge_at = ? WHERE retired_at IS NULL`,
		toMillis(retiredAt), toMillis(purgeAt)))
}

func (r *signingKeysRepo) DeletePurgedSigningKeys(ctx context.Context, now time.Time) (int64, error) {
	return rowCount(r.exec(ctx, `DELETE FROM signing_keys WHERE retired_at IS NOT NULL AND purge_at <= ?`, toMillis(now)))
}
