package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// IdempotencyStore records request keys with SETNX so a retried request is
// recognised for ttl.
type IdempotencyStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewIdempotencyStore(rdb redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotent-key:%s", key)
}

// Reserve reports whether key was free and is now taken.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (bool, error) {
	return s.rdb.SetNX(ctx, idempotencyKey(key), "exists", s.ttl).Result()
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, idempotencyKey(key)).Err()
}
