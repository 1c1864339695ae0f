package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/auth/domain"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
)

// KeyRepository adapts a Store to jwtx.KeyRepository so jwtx does not
// depend on domain or store.
type KeyRepository struct {
	store Store
}

var _ jwtx.KeyRepository = (*KeyRepository)(nil)

func NewKeyRepository(s Store) *KeyRepository {
	return &KeyRepository{store: s}
}

func (a *KeyRepository) ListSigningKeys(ctx context.Context) ([]jwtx.SigningKeyRecord, error) {
	keys, err := a.store.SigningKeys().ListSigningKeys(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]jwtx.SigningKeyRecord, len(keys))
	for i, k := range keys {
		records[i] = jwtx.SigningKeyRecord{
			ID:                  k.ID,
			KID:                 k.KID,
			Algorithm:           k.Algorithm,
			PrivateKeyEncrypted: k.PrivateKeyEncrypted,
			CreatedAt:           k.CreatedAt,
			RetiredAt:           k.RetiredAt,
			PurgeAt:             k.PurgeAt,
		}
	}
	return records, nil
}

// RotateSigningKey retires the active key and inserts next in one
// transaction. The single-active index turns a concurrent rotation into
// ErrAlreadyExists instead of two active keys.
func (a *KeyRepository) RotateSigningKey(ctx context.Context, next jwtx.SigningKeyRecord, retiredAt, purgeAt time.Time) error {
	return a.store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.SigningKeys().RetireActiveSigningKey(ctx, retiredAt, purgeAt); err != nil {
			return fmt.Errorf("retire active key: %w", err)
		}
		return tx.SigningKeys().CreateSigningKey(ctx, domain.SigningKey{
			ID:                  next.ID,
			KID:                 next.KID,
			Algorithm:           next.Algorithm,
			PrivateKeyEncrypted: next.PrivateKeyEncrypted,
			CreatedAt:           next.CreatedAt,
		})
	})
}

func (a *KeyRepository) DeletePurgedSigningKeys(ctx context.Context, now time.Time) (int64, error) {
	return a.store.SigningKeys().DeletePurgedSigningKeys(ctx, now)
}
