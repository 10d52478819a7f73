package chat

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper stores applied chat idempotency keys in Redis so a retried
// request cannot apply its directive twice.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

// Add records the key if it does not already exist. It returns true when the
// key was newly added.
func (r *RedisDeduper) Add(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, "chat:"+key, 1, r.ttl).Result()
}

// NopDeduper admits every key. It is used when no Redis connection is
// configured.
type NopDeduper struct{}

// Add always reports the key as newly added.
func (NopDeduper) Add(context.Context, string) (bool, error) { return true, nil }
