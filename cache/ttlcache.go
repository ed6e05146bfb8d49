// ttlcache.go builds the MarketDataFetcher's TTL + single-flight cache on
// top of RedisClient. When redis is unavailable (NewRedisClient returned
// nil, mirroring the teacher's "degrade gracefully" convention) it falls
// back to an in-process map so the fetcher still single-flights concurrent
// callers even without a Redis deployment.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TTLCache is a concurrent, TTL-expiring cache keyed by opaque strings,
// backed by Redis when present and an in-process map otherwise. Every Get
// is single-flighted: concurrent callers racing on the same missing key
// share one Load call (spec §4.2: "a concurrent second caller for the
// same uncached key shares the first caller's in-flight result").
type TTLCache struct {
	redis *RedisClient
	group singleflight.Group

	mu    sync.Mutex
	local map[string]localEntry
}

type localEntry struct {
	value   json.RawMessage
	expires time.Time
}

// NewTTLCache wraps an optional RedisClient (nil falls back to
// in-process-only caching).
func NewTTLCache(redis *RedisClient) *TTLCache {
	return &TTLCache{redis: redis, local: make(map[string]localEntry)}
}

// Load returns the cached value for key if present and unexpired,
// otherwise calls fetch exactly once per set of concurrent callers and
// caches the result for ttl. dest must be a pointer; fetch must populate a
// value of the same underlying type it returns.
func (c *TTLCache) Load(ctx context.Context, key string, ttl time.Duration, dest any, fetch func(ctx context.Context) (any, error)) error {
	raw, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.getRaw(ctx, key); ok {
			return v, nil
		}
		val, ferr := fetch(ctx)
		if ferr != nil {
			return nil, ferr
		}
		encoded, merr := json.Marshal(val)
		if merr != nil {
			return nil, merr
		}
		c.putRaw(ctx, key, encoded, ttl)
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.(json.RawMessage), dest)
}

func (c *TTLCache) getRaw(ctx context.Context, key string) (json.RawMessage, bool) {
	if c.redis != nil {
		var raw json.RawMessage
		if err := c.redis.Get(ctx, key, &raw); err == nil {
			return raw, true
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.local[key]
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.value, true
}

func (c *TTLCache) putRaw(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) {
	if c.redis != nil {
		_ = c.redis.Set(ctx, key, value, ttl)
	}
	c.mu.Lock()
	c.local[key] = localEntry{value: value, expires: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Invalidate removes a key from both tiers.
func (c *TTLCache) Invalidate(ctx context.Context, key string) {
	if c.redis != nil {
		_ = c.redis.Delete(ctx, key)
	}
	c.mu.Lock()
	delete(c.local, key)
	c.mu.Unlock()
}
