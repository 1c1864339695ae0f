package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	revoked, err := c.IsRevoked(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, c.Revoke(ctx, "s1", 15*time.Minute))
	require.NoError(t, c.Revoke(ctx, "s2", time.Minute))

	revoked, err = c.IsRevoked(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// A shorter TTL never shortens an existing entry.
	require.NoError(t, c.Revoke(ctx, "s1", time.Second))

	now = now.Add(2 * time.Minute)
	revoked, _ = c.IsRevoked(ctx, "s2")
	assert.False(t, revoked, "entry lapsed")
	revoked, _ = c.IsRevoked(ctx, "s1")
	assert.True(t, revoked)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())

	now = now.Add(time.Hour)
	assert.Equal(t, 1, c.Sweep())
	assert.Zero(t, c.Len())
}
