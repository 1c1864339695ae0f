package jwtx

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/sessiond/pkg/cryptox"
)

// DefaultKeyOverlap is how long a retired key stays in the verification set.
const DefaultKeyOverlap = 30 * 24 * time.Hour

// DefaultRSABits is the modulus size for generated keys.
const DefaultRSABits = 3072

// ErrNoActiveKey is returned when no signing key has been activated. Token
// issuance must stop rather than fall back to anything weaker.
var ErrNoActiveKey = errors.New("jwtx: no active signing key")

// KeyInfo describes a key in the table without exposing key material.
type KeyInfo struct {
	KID       string     `json:"kid"`
	Algorithm string     `json:"alg"`
	CreatedAt time.Time  `json:"createdAt"`
	Active    bool       `json:"active"`
	RetiredAt *time.Time `json:"retiredAt,omitempty"`
	PurgeAt   *time.Time `json:"purgeAt,omitempty"`
}

type keyEntry struct {
	signer    Signer
	createdAt time.Time
	retiredAt time.Time // zero while active
	purgeAt   time.Time
}

func (e *keyEntry) info(active bool) KeyInfo {
	ki := KeyInfo{
		KID:       e.signer.KID(),
		Algorithm: e.signer.Alg(),
		CreatedAt: e.createdAt,
		Active:    active,
	}
	if !e.retiredAt.IsZero() {
		r, p := e.retiredAt, e.purgeAt
		ki.RetiredAt, ki.PurgeAt = &r, &p
	}
	return ki
}

// KeyOptions configures key generation and retention.
type KeyOptions struct {
	// Algorithm used for newly generated keys: RS256 or PS256.
	Algorithm string

	// RSABits for generated keys. Defaults to DefaultRSABits.
	RSABits int

	// Overlap is how long a demoted key remains verifiable. Defaults to
	// DefaultKeyOverlap.
	Overlap time.Duration

	// Now overrides the clock.
	Now func() time.Time
}

// KeyManager is the key store for one process. Exactly one key is active
// and used for signing; keys demoted by a rotation remain verify-only
// until their overlap window elapses and Purge removes them.
//
// A KeyManager is created once at startup and passed explicitly to
// whatever signs or verifies tokens.
type KeyManager struct {
	opts KeyOptions

	mu        sync.RWMutex
	activeKID string
	entries   map[string]*keyEntry
	keys      *KeySet

	// rotateMu serialises Rotate, Purge and Sync so persistence and the
	// in-memory table change in the same order.
	rotateMu sync.Mutex
	repo     KeyRepository
	sealer   *cryptox.KeySealer
	lastSync time.Time
}

// NewKeyManager returns a KeyManager with no keys. ActiveSigner fails with
// ErrNoActiveKey until a key is activated.
func NewKeyManager(opts KeyOptions) (*KeyManager, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = AlgorithmRS256
	}
	if !IsSupportedAlgorithm(opts.Algorithm) {
		return nil, fmt.Errorf("%w: %q (supported: RS256, PS256)", ErrUnsupportedAlg, opts.Algorithm)
	}
	if opts.RSABits == 0 {
		opts.RSABits = DefaultRSABits
	}
	if opts.RSABits < cryptox.MinRSABits {
		return nil, fmt.Errorf("jwtx: RSA key size must be at least %d bits", cryptox.MinRSABits)
	}
	if opts.Overlap <= 0 {
		opts.Overlap = DefaultKeyOverlap
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &KeyManager{
		opts:    opts,
		entries: make(map[string]*keyEntry),
		keys:    NewKeySet(),
	}, nil
}

// NewEphemeralKeyManager creates a KeyManager with a single freshly
// generated key that only lives in memory. Every token becomes invalid
// when the process restarts.
func NewEphemeralKeyManager(opts KeyOptions) (*KeyManager, error) {
	km, err := NewKeyManager(opts)
	if err != nil {
		return nil, err
	}
	if _, err := km.Rotate(context.Background()); err != nil {
		return nil, err
	}
	return km, nil
}

// Algorithm returns the algorithm used for new keys.
func (km *KeyManager) Algorithm() string { return km.opts.Algorithm }

// Overlap returns the retention window for demoted keys.
func (km *KeyManager) Overlap() time.Duration { return km.opts.Overlap }

// IsReady reports whether a key is active.
func (km *KeyManager) IsReady() bool {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.activeKID != ""
}

// ActiveSigner returns the signer for new tokens.
func (km *KeyManager) ActiveSigner() (Signer, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()
	e, ok := km.entries[km.activeKID]
	if !ok {
		return nil, ErrNoActiveKey
	}
	return e.signer, nil
}

// VerificationKey looks kid up across the active and retained keys.
func (km *KeyManager) VerificationKey(kid string) (VerificationKey, error) {
	km.mu.RLock()
	keys := km.keys
	km.mu.RUnlock()
	return keys.Get(kid)
}

// PublicJWKS returns the verification set for external verifiers.
func (km *KeyManager) PublicJWKS() JWKS {
	km.mu.RLock()
	keys := km.keys
	km.mu.RUnlock()
	return keys.PublicJWKS()
}

// Keys lists the key table, newest first.
func (km *KeyManager) Keys() []KeyInfo {
	km.mu.RLock()
	defer km.mu.RUnlock()
	out := make([]KeyInfo, 0, len(km.entries))
	for kid, e := range km.entries {
		out = append(out, e.info(kid == km.activeKID))
	}
	slices.SortFunc(out, func(a, b KeyInfo) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

// Activate installs signer as the active key and demotes the previous
// active key to verify-only with a purge deadline of now+overlap.
func (km *KeyManager) Activate(signer Signer, createdAt time.Time) error {
	if signer == nil {
		return errors.New("jwtx: signer cannot be nil")
	}
	if !IsSupportedAlgorithm(signer.Alg()) {
		return fmt.Errorf("%w: %q", ErrUnsupportedAlg, signer.Alg())
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if _, exists := km.entries[signer.KID()]; exists {
		return fmt.Errorf("jwtx: kid %q already present", signer.KID())
	}
	now := km.opts.Now()
	if prev, ok := km.entries[km.activeKID]; ok {
		prev.retiredAt = now
		prev.purgeAt = now.Add(km.opts.Overlap)
	}

	km.entries[signer.KID()] = &keyEntry{signer: signer, createdAt: createdAt}
	km.keys.Add(VerificationKey{KID: signer.KID(), Algorithm: signer.Alg(), PublicKey: signer.PublicKey()})
	km.activeKID = signer.KID()
	return nil
}

// Rotate generates a new key, persists it when a repository is attached,
// and makes it active. The previous key stays verifiable for the overlap
// window.
func (km *KeyManager) Rotate(ctx context.Context) (KeyInfo, error) {
	km.rotateMu.Lock()
	defer km.rotateMu.Unlock()

	kid, err := NewKeyID()
	if err != nil {
		return KeyInfo{}, err
	}
	pemKey, err := cryptox.GenerateRSAKey(km.opts.RSABits)
	if err != nil {
		return KeyInfo{}, fmt.Errorf("jwtx: generate key: %w", err)
	}
	signer, err := NewSigner(km.opts.Algorithm, kid, pemKey)
	if err != nil {
		return KeyInfo{}, err
	}

	now := km.opts.Now()
	if km.repo != nil {
		if err := km.persistRotation(ctx, signer, pemKey, now); err != nil {
			return KeyInfo{}, err
		}
		if err := km.syncLocked(ctx); err != nil {
			return KeyInfo{}, err
		}
	} else if err := km.Activate(signer, now); err != nil {
		return KeyInfo{}, err
	}
	return KeyInfo{KID: kid, Algorithm: signer.Alg(), CreatedAt: now, Active: true}, nil
}

// Purge removes retired keys whose overlap window has elapsed and returns
// their kids. The active key is never purged.
func (km *KeyManager) Purge(ctx context.Context) ([]string, error) {
	km.rotateMu.Lock()
	defer km.rotateMu.Unlock()

	now := km.opts.Now()
	if km.repo != nil {
		if _, err := km.repo.DeletePurgedSigningKeys(ctx, now); err != nil {
			return nil, fmt.Errorf("jwtx: purge stored keys: %w", err)
		}
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	var purged []string
	for kid, e := range km.entries {
		if kid == km.activeKID || e.retiredAt.IsZero() || now.Before(e.purgeAt) {
			continue
		}
		delete(km.entries, kid)
		km.keys.Remove(kid)
		purged = append(purged, kid)
	}
	slices.Sort(purged)
	return purged, nil
}

// NewKeyID returns a random, unguessable key identifier.
func NewKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("jwtx: generate key id: %w", err)
	}
	return "sk-" + token, nil
}
