package journals

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const directoryKey = "journals:directory"

// KV is the piece of the redis cache the journal directory needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// Cache holds the scraped directory with an expiry instead of a module-level
// variable, so a restart or TTL lapse forces a rescrape.
type Cache struct {
	kv  KV
	ttl time.Duration
}

func NewCache(kv KV, ttl time.Duration) *Cache {
	return &Cache{kv: kv, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context) ([]Journal, bool) {
	data, err := c.kv.Get(ctx, directoryKey)
	if err != nil {
		return nil, false
	}

	var items []Journal
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, false
	}
	return items, true
}

func (c *Cache) Set(ctx context.Context, items []Journal) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode journal directory: %w", err)
	}
	return c.kv.Set(ctx, directoryKey, data, c.ttl)
}
