package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is a process-local Cache. Lapsed entries are dropped by
// Sweep, which the housekeeping loop calls.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithClock(time.Now)
}

// NewMemoryCacheWithClock returns a MemoryCache that reads time from now.
func NewMemoryCacheWithClock(now func() time.Time) *MemoryCache {
	return &MemoryCache{entries: make(map[string]time.Time), now: now}
}

func (c *MemoryCache) Revoke(_ context.Context, sessionID string, ttl time.Duration) error {
	until := c.now().Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[sessionID]; !ok || until.After(prev) {
		c.entries[sessionID] = until
	}
	return nil
}

func (c *MemoryCache) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	c.mu.RLock()
	until, ok := c.entries[sessionID]
	c.mu.RUnlock()
	return ok && c.now().Before(until), nil
}

// Sweep removes lapsed entries and returns how many it dropped.
func (c *MemoryCache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, until := range c.entries {
		if !now.Before(until) {
			delete(c.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked entries, lapsed or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
