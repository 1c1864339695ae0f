package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces revocation keys.
const DefaultRedisPrefix = "sessiond:revoked:"

// RedisCache shares revocations between processes. Redis expires the keys
// itself, so there is nothing to sweep.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.prefix+sessionID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revocation: set %s: %w", sessionID, err)
	}
	return nil
}

func (c *RedisCache) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("revocation: exists %s: %w", sessionID, err)
	}
	return n > 0, nil
}

// Ping checks connectivity, used by readiness probes.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
