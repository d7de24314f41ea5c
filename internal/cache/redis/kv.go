package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

// KV implements domain.KVCache on plain Redis strings. Keys are namespaced
// with a prefix so several deployments can share one Redis.
type KV struct {
	rdb    *redis.Client
	prefix string
}

// NewKV creates a KV backed by the given Client.
func NewKV(c *Client, prefix string) *KV {
	return &KV{rdb: c.Underlying(), prefix: prefix}
}

func (k *KV) key(key string) string {
	if k.prefix == "" {
		return key
	}
	return k.prefix + ":" + key
}

// Get returns the value at key, or domain.ErrCacheMiss when absent.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := k.rdb.Get(ctx, k.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}
	return val, nil
}

// Put stores value at key with the given TTL. A zero TTL stores without
// expiry.
func (k *KV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := k.rdb.Set(ctx, k.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: put %s: %w", key, err)
	}
	return nil
}

// Increment atomically adds delta to the counter at key and returns the new
// value. Missing keys start at zero.
func (k *KV) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	n, err := k.rdb.IncrBy(ctx, k.key(key), delta).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: incr %s: %w", key, err)
	}
	return n, nil
}

// Forget removes key. Removing an absent key is not an error.
func (k *KV) Forget(ctx context.Context, key string) error {
	if err := k.rdb.Del(ctx, k.key(key)).Err(); err != nil {
		return fmt.Errorf("redis: del %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.KVCache = (*KV)(nil)
