package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/sessiond/internal/auth/audit"
	"github.com/aussiebroadwan/sessiond/internal/auth/metrics"
	"github.com/aussiebroadwan/sessiond/internal/auth/store"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

// KeyRotationService is the operator-facing side of the key table. The
// KeyManager does the work; this adds logging, auditing and metrics.
//
// With a persistent KeyManager the new key is written to the database and
// every other process picks it up on its next sync or on the first token
// carrying the new kid. An ephemeral KeyManager only changes this process.
type KeyRotationService struct {
	Keys    *jwtx.KeyManager
	Audit   audit.Sink
	Metrics *metrics.Metrics
}

// RotateKeyResponse describes the key table after a rotation.
type RotateKeyResponse struct {
	NewKey jwtx.KeyInfo   `json:"newKey"`
	Keys   []jwtx.KeyInfo `json:"keys"`
}

// RotateKey activates a freshly generated key. The previous active key
// stays verify-only until its overlap window elapses.
func (s *KeyRotationService) RotateKey(ctx context.Context) (*RotateKeyResponse, error) {
	const op = "keys.rotate"
	if s.Keys == nil {
		return nil, newError(KindInternal, op, errors.New("KeyManager is required"))
	}

	previous := ""
	if signer, err := s.Keys.ActiveSigner(); err == nil {
		previous = signer.KID()
	}

	info, err := s.Keys.Rotate(ctx)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Another process rotated at the same moment; its key wins.
			err = fmt.Errorf("concurrent rotation: %w", err)
		}
		return nil, classify(op, err)
	}

	slogx.FromContext(ctx).Info("signing key rotated",
		slog.String("kid", info.KID),
		slog.String("previous_kid", previous),
		slog.String("alg", info.Algorithm),
	)
	if s.Metrics != nil {
		s.Metrics.KeyRotations.Inc()
	}
	if s.Audit != nil {
		s.Audit.Record(ctx, audit.Event{
			Type: audit.EventKeyRotated,
			Metadata: map[string]any{
				"kid":         info.KID,
				"previousKid": previous,
				"alg":         info.Algorithm,
				"overlap":     s.Keys.Overlap().String(),
			},
		})
	}

	return &RotateKeyResponse{NewKey: info, Keys: s.Keys.Keys()}, nil
}

// ListSigningKeys returns the key table, newest first, without key material.
func (s *KeyRotationService) ListSigningKeys(ctx context.Context) ([]jwtx.KeyInfo, error) {
	if s.Keys.Persistent() {
		if err := s.Keys.Sync(ctx); err != nil {
			return nil, classify("keys.list", err)
		}
	}
	return s.Keys.Keys(), nil
}

// PurgeRetiredKeys drops keys whose overlap window has elapsed.
func (s *KeyRotationService) PurgeRetiredKeys(ctx context.Context) ([]string, error) {
	purged, err := s.Keys.Purge(ctx)
	if err != nil {
		return nil, classify("keys.purge", err)
	}
	return purged, nil
}
