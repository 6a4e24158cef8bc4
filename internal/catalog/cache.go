package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "kasir:catalog:product:"

// Cache wraps Redis helpers for JSON payloads. A nil client degrades to a
// no-op so the terminal keeps pricing when the store network is down.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetProduct loads a cached product. It reports whether the key existed.
func (c *Cache) GetProduct(ctx context.Context, id string, dst *Product) (bool, error) {
	if c == nil || c.client == nil || id == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, cacheKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetProduct serialises the product as JSON and stores it with the configured TTL.
func (c *Cache) SetProduct(ctx context.Context, p Product) error {
	if c == nil || c.client == nil || p.ID == "" {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKeyPrefix+p.ID, data, c.ttl).Err()
}
