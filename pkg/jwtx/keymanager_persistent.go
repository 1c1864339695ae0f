package jwtx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/sessiond/pkg/cryptox"
	"github.com/aussiebroadwan/sessiond/pkg/idx"
)

// minSyncInterval bounds how often an unknown kid can force a reload.
const minSyncInterval = 10 * time.Second

// SigningKeyRecord is a signing key as stored by a KeyRepository. The
// private key is sealed with cryptox.KeySealer before it leaves this
// package.
type SigningKeyRecord struct {
	ID                  string
	KID                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time
	PurgeAt             *time.Time
}

// KeyRepository persists the key table so that keys survive restarts and
// are shared between processes.
type KeyRepository interface {
	// ListSigningKeys returns every stored key, including retired ones.
	ListSigningKeys(ctx context.Context) ([]SigningKeyRecord, error)

	// RotateSigningKey retires the currently active key (if any) with the
	// given timestamps and stores next as the only active key, atomically.
	RotateSigningKey(ctx context.Context, next SigningKeyRecord, retiredAt, purgeAt time.Time) error

	// DeletePurgedSigningKeys removes retired keys whose purge time is at
	// or before now.
	DeletePurgedSigningKeys(ctx context.Context, now time.Time) (int64, error)
}

// PersistentKeyOptions configures a KeyManager backed by a KeyRepository.
type PersistentKeyOptions struct {
	KeyOptions

	Repository KeyRepository
	Sealer     *cryptox.KeySealer
}

// NewPersistentKeyManager loads the key table from the repository and
// generates a first key when none is active.
func NewPersistentKeyManager(ctx context.Context, opts PersistentKeyOptions) (*KeyManager, error) {
	if opts.Repository == nil {
		return nil, errors.New("jwtx: Repository is required for persistent key manager")
	}
	if opts.Sealer == nil {
		return nil, errors.New("jwtx: Sealer is required for persistent key manager")
	}

	km, err := NewKeyManager(opts.KeyOptions)
	if err != nil {
		return nil, err
	}
	km.repo = opts.Repository
	km.sealer = opts.Sealer

	if err := km.Sync(ctx); err != nil {
		return nil, err
	}
	if !km.IsReady() {
		if _, err := km.Rotate(ctx); err != nil {
			return nil, fmt.Errorf("jwtx: create initial key: %w", err)
		}
	}
	return km, nil
}

// Persistent reports whether the key table is backed by a repository.
func (km *KeyManager) Persistent() bool { return km.repo != nil }

// Sync reloads the key table from the repository so that rotations made
// by other processes become visible. It is a no-op for ephemeral managers.
func (km *KeyManager) Sync(ctx context.Context) error {
	if km.repo == nil {
		return nil
	}

	km.rotateMu.Lock()
	defer km.rotateMu.Unlock()
	return km.syncLocked(ctx)
}

// syncLocked requires rotateMu.
func (km *KeyManager) syncLocked(ctx context.Context) error {
	records, err := km.repo.ListSigningKeys(ctx)
	if err != nil {
		return fmt.Errorf("jwtx: load keys: %w", err)
	}

	km.mu.RLock()
	current := km.entries
	km.mu.RUnlock()

	now := km.opts.Now()
	entries := make(map[string]*keyEntry, len(records))
	keys := NewKeySet()
	var active *keyEntry

	for _, rec := range records {
		if rec.PurgeAt != nil && !now.Before(*rec.PurgeAt) {
			continue
		}

		var signer Signer
		if e, ok := current[rec.KID]; ok {
			signer = e.signer
		} else {
			pemKey, err := km.sealer.Open(rec.PrivateKeyEncrypted)
			if err != nil {
				return fmt.Errorf("jwtx: decrypt key %s: %w", rec.KID, err)
			}
			signer, err = NewSigner(rec.Algorithm, rec.KID, pemKey)
			if err != nil {
				return fmt.Errorf("jwtx: load key %s: %w", rec.KID, err)
			}
		}

		e := &keyEntry{signer: signer, createdAt: rec.CreatedAt}
		if rec.RetiredAt != nil {
			e.retiredAt = *rec.RetiredAt
			if rec.PurgeAt != nil {
				e.purgeAt = *rec.PurgeAt
			}
		} else if active == nil || rec.CreatedAt.After(active.createdAt) {
			active = e
		}

		entries[rec.KID] = e
		keys.Add(VerificationKey{KID: rec.KID, Algorithm: signer.Alg(), PublicKey: signer.PublicKey()})
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	km.entries = entries
	km.keys = keys
	km.activeKID = ""
	if active != nil {
		km.activeKID = active.signer.KID()
	}
	km.lastSync = now
	return nil
}

// ResolveKey is VerificationKey with a fallback for multi-process
// deployments: on a miss it reloads the table from the repository, at most
// once per minSyncInterval, and retries. A failed reload is reported as
// itself, never as ErrUnknownKID.
func (km *KeyManager) ResolveKey(ctx context.Context, kid string) (VerificationKey, error) {
	vk, err := km.VerificationKey(kid)
	if err == nil || km.repo == nil {
		return vk, err
	}

	km.mu.RLock()
	stale := km.opts.Now().Sub(km.lastSync) >= minSyncInterval
	km.mu.RUnlock()
	if !stale {
		return vk, err
	}

	if err := km.Sync(ctx); err != nil {
		return VerificationKey{}, fmt.Errorf("jwtx: reload keys for %q: %w", kid, err)
	}
	return km.VerificationKey(kid)
}

func (km *KeyManager) persistRotation(ctx context.Context, signer Signer, pemKey []byte, now time.Time) error {
	sealed, err := km.sealer.Seal(pemKey)
	if err != nil {
		return fmt.Errorf("jwtx: seal key: %w", err)
	}
	rec := SigningKeyRecord{
		ID:                  idx.NewAt(now).String(),
		KID:                 signer.KID(),
		Algorithm:           signer.Alg(),
		PrivateKeyEncrypted: sealed,
		CreatedAt:           now,
	}
	if err := km.repo.RotateSigningKey(ctx, rec, now, now.Add(km.opts.Overlap)); err != nil {
		return fmt.Errorf("jwtx: store key: %w", err)
	}
	return nil
}
