package domain

import (
	"context"
	"time"
)

// KVCache is a string-keyed cache with per-entry TTL. Get returns
// ErrCacheMiss for absent or expired keys. Values are opaque bytes;
// callers own serialization.
type KVCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Increment(ctx context.Context, key string, delta int64) (int64, error)
	Forget(ctx context.Context, key string) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
