package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// BankCountTTL bounds how stale cached bank population counts may get. The
// bank changes rarely compared to how often attempts are assembled, so a
// short TTL keeps assembly cheap without a write-through protocol.
const BankCountTTL = 5 * time.Minute

// Cache is a thin JSON-over-Redis helper. A nil client disables caching
// entirely; every operation then falls through to the loader.
type Cache struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) key(parts ...string) string {
	return c.prefix + ":" + strings.Join(parts, ":")
}

// GetOrCompute fills dest from cache when possible, otherwise runs load,
// stores the result, and fills dest from it. Redis failures degrade to a
// plain load; the caller never sees them.
func (c *Cache) GetOrCompute(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func() (interface{}, error)) error {
	if c == nil || c.client == nil {
		return c.loadInto(dest, load)
	}

	full := c.key(key)
	raw, err := c.client.Get(ctx, full).Bytes()
	if err == nil {
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			return nil
		}
		// Corrupt entry, drop it and recompute.
		c.client.Del(ctx, full)
	}

	value, err := load()
	if err != nil {
		return err
	}

	if encoded, jsonErr := json.Marshal(value); jsonErr == nil {
		c.client.Set(ctx, full, encoded, ttl)
	}

	return assign(dest, value)
}

// InvalidatePattern removes every key under the cache's prefix matching the
// glob pattern. Errors are swallowed; stale entries expire via TTL anyway.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) {
	if c == nil || c.client == nil {
		return
	}

	full := c.key(pattern)
	iter := c.client.Scan(ctx, 0, full, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}

func (c *Cache) HealthCheck(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache ping failed: %w", err)
	}
	return nil
}

func (c *Cache) loadInto(dest interface{}, load func() (interface{}, error)) error {
	value, err := load()
	if err != nil {
		return err
	}
	return assign(dest, value)
}

// assign copies value into dest through a JSON round trip. The loader and
// the cached path then produce identical shapes, so callers cannot observe
// whether a hit or a miss served them.
func assign(dest, value interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	if err := json.Unmarshal(encoded, dest); err != nil {
		return fmt.Errorf("failed to decode cache value: %w", err)
	}
	return nil
}

// BankKey builds a stable cache key for bank-wide counts under the given
// filters. Topic order matters to the caller (allowlists are ordered), so it
// is preserved rather than sorted.
func BankKey(kind string, examName *string, topics []string) string {
	exam := "-"
	if examName != nil {
		exam = *examName
	}
	if len(topics) == 0 {
		return fmt.Sprintf("%s:%s:all", kind, exam)
	}
	return fmt.Sprintf("%s:%s:%s", kind, exam, strings.Join(topics, ","))
}
