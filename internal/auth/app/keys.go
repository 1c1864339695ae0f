package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/sessiond/internal/auth/store"
	"github.com/aussiebroadwan/sessiond/pkg/cryptox"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
)

// InitAuthKeys creates the KeyManager for the configured storage mode.
//
// Storage modes:
//   - "ephemeral": one key is generated on startup and kept in memory.
//     All existing tokens become invalid when the service restarts.
//   - "persistent": keys are sealed with the master key and stored in the
//     signing_keys table. Tokens survive restarts and every replica signs
//     with the same active key.
func InitAuthKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyOptions{
		Algorithm: cfg.Algorithm,
		RSABits:   cfg.RSABits,
		Overlap:   cfg.KeyOverlap,
	}

	switch cfg.KeyStorageMode {
	case KeyStoragePersistent:
		material, err := cryptox.LoadOrCreateSecret(cfg.MasterKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load master key: %w", err)
		}
		sealer, err := cryptox.NewKeySealer(material)
		if err != nil {
			return nil, err
		}

		logger.Info("initializing persistent key manager",
			"algorithm", cfg.Algorithm,
			"overlap", cfg.KeyOverlap,
		)
		km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyOptions{
			KeyOptions: opts,
			Repository: store.NewKeyRepository(db),
			Sealer:     sealer,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize persistent key manager: %w", err)
		}
		logger.Info("persistent signing keys loaded", "keys", len(km.Keys()))
		return km, nil

	default:
		logger.Info("initializing ephemeral key manager", "algorithm", cfg.Algorithm)
		km, err := jwtx.NewEphemeralKeyManager(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
		}
		logger.Warn("ephemeral signing key generated; tokens issued before this start are invalid")
		return km, nil
	}
}
