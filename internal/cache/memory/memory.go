// Package memory provides an in-process KVCache for tests and single-node
// deployments without Redis.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache is a map-backed KVCache with lazy expiry.
type Cache struct {
	clock domain.Clock

	mu      sync.RWMutex
	entries map[string]entry
}

var _ domain.KVCache = (*Cache)(nil)

// New creates an empty Cache.
func New(clock domain.Clock) *Cache {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Cache{clock: clock, entries: make(map[string]entry)}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || e.expired(c.clock.Now()) {
		return nil, domain.ErrCacheMiss
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (c *Cache) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.clock.Now().Add(ttl)
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	c.entries[key] = entry{value: stored, expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Increment(_ context.Context, key string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var current int64
	if e, ok := c.entries[key]; ok && !e.expired(c.clock.Now()) {
		n, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, err
		}
		current = n
	}
	current += delta
	c.entries[key] = entry{value: []byte(strconv.FormatInt(current, 10))}
	return current, nil
}

func (c *Cache) Forget(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}
