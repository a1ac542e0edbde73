package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"planty-of-food/internal/entity"
)

// ProductCache keeps JSON snapshots of products in Redis under product:<id>.
type ProductCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewProductCache(rdb redis.Cmdable, ttl time.Duration) *ProductCache {
	return &ProductCache{rdb: rdb, ttl: ttl}
}

func productKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

// Get returns nil, nil when the product is not cached.
func (c *ProductCache) Get(ctx context.Context, id string) (*entity.Product, error) {
	val, err := c.rdb.Get(ctx, productKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var product entity.Product
	if err := json.Unmarshal([]byte(val), &product); err != nil {
		return nil, fmt.Errorf("decode cached product %s: %w", id, err)
	}
	return &product, nil
}

func (c *ProductCache) Set(ctx context.Context, product *entity.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, productKey(product.ID), data, c.ttl).Err()
}

func (c *ProductCache) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
