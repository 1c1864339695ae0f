package jwtx_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func activeCount(keys []jwtx.KeyInfo) int {
	n := 0
	for _, k := range keys {
		if k.Active {
			n++
		}
	}
	return n
}

func TestNewKeyManagerRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts jwtx.KeyOptions
	}{
		{"symmetric algorithm", jwtx.KeyOptions{Algorithm: "HS256"}},
		{"ecdsa", jwtx.KeyOptions{Algorithm: "ES256"}},
		{"small rsa", jwtx.KeyOptions{Algorithm: jwtx.AlgorithmPS256, RSABits: 1024}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := jwtx.NewKeyManager(tt.opts)
			require.Error(t, err)
		})
	}
}

func TestEmptyKeyManagerHasNoActiveKey(t *testing.T) {
	km, err := jwtx.NewKeyManager(jwtx.KeyOptions{})
	require.NoError(t, err)

	_, err = km.ActiveSigner()
	require.ErrorIs(t, err, jwtx.ErrNoActiveKey)
	require.False(t, km.IsReady())
	require.Empty(t, km.PublicJWKS().Keys)
}

func TestEphemeralKeyManagerSingleActiveKey(t *testing.T) {
	km := newKeyManager(t, newClock())

	require.True(t, km.IsReady())
	keys := km.Keys()
	require.Len(t, keys, 1)
	require.Equal(t, 1, activeCount(keys))

	signer, err := km.ActiveSigner()
	require.NoError(t, err)
	require.Equal(t, keys[0].KID, signer.KID())

	vk, err := km.VerificationKey(signer.KID())
	require.NoError(t, err)
	require.Equal(t, jwtx.AlgorithmRS256, vk.Algorithm)
}

func TestRotateKeepsExactlyOneActiveKey(t *testing.T) {
	clock := newClock()
	km := newKeyManager(t, clock)
	first, err := km.ActiveSigner()
	require.NoError(t, err)

	for range 3 {
		clock.Advance(time.Minute)
		info, err := km.Rotate(context.Background())
		require.NoError(t, err)
		require.True(t, info.Active)

		active, err := km.ActiveSigner()
		require.NoError(t, err)
		require.Equal(t, info.KID, active.KID())
		require.Equal(t, 1, activeCount(km.Keys()))
	}

	keys := km.Keys()
	require.Len(t, keys, 4)
	require.Len(t, km.PublicJWKS().Keys, 4)

	// The original key is retired but still verifiable.
	_, err = km.VerificationKey(first.KID())
	require.NoError(t, err)
	for _, k := range keys {
		if k.KID == first.KID() {
			require.False(t, k.Active)
			require.NotNil(t, k.RetiredAt)
			require.Equal(t, k.RetiredAt.Add(time.Hour), *k.PurgeAt)
		}
	}
}

func TestPurgeRemovesOnlyExpiredRetiredKeys(t *testing.T) {
	clock := newClock()
	km := newKeyManager(t, clock)
	first, err := km.ActiveSigner()
	require.NoError(t, err)

	_, err = km.Rotate(context.Background())
	require.NoError(t, err)
	second, err := km.ActiveSigner()
	require.NoError(t, err)

	purged, err := km.Purge(context.Background())
	require.NoError(t, err)
	require.Empty(t, purged, "overlap window has not elapsed")

	clock.Advance(time.Hour)
	purged, err = km.Purge(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{first.KID()}, purged)

	_, err = km.VerificationKey(first.KID())
	require.ErrorIs(t, err, jwtx.ErrUnknownKID)

	// The active key is never purged, however old it is.
	clock.Advance(365 * 24 * time.Hour)
	purged, err = km.Purge(context.Background())
	require.NoError(t, err)
	require.Empty(t, purged)
	active, err := km.ActiveSigner()
	require.NoError(t, err)
	require.Equal(t, second.KID(), active.KID())
}

func TestActivateRejectsDuplicateKID(t *testing.T) {
	km := newKeyManager(t, newClock())
	active, err := km.ActiveSigner()
	require.NoError(t, err)

	err = km.Activate(active, time.Now())
	require.Error(t, err)
	require.Error(t, km.Activate(nil, time.Now()))
}

func TestPublicJWKSHasNoPrivateMaterial(t *testing.T) {
	km := newKeyManager(t, newClock())
	jwks := km.PublicJWKS()
	require.Len(t, jwks.Keys, 1)

	k := jwks.Keys[0]
	require.Equal(t, "RSA", k.Kty)
	require.NotEmpty(t, k.N)
	require.NotEmpty(t, k.E)
	require.NotEmpty(t, k.Kid)
	require.Equal(t, jwtx.AlgorithmRS256, k.Alg)
}
