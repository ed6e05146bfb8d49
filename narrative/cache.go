package narrative

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"signalengine/cache"
)

// Cache de-duplicates LLM calls for a symbol whose underlying data
// hasn't moved, and enforces a cooldown between calls so a hot symbol
// can't exhaust the LLM quota in one scan. Adapted from the teacher's
// cache.LLMCache (cache/llm_cache.go); same Redis-optional shape, keyed
// on the candidate's data instead of a whale alert.
type Cache struct {
	redis *cache.RedisClient
}

func NewCache(redis *cache.RedisClient) *Cache {
	return &Cache{redis: redis}
}

// GetNarration returns a cached narration for (symbol, dataHash), if any.
func (c *Cache) GetNarration(ctx context.Context, symbol, dataHash string) (string, bool) {
	if c.redis == nil {
		return "", false
	}
	var narration string
	if err := c.redis.Get(ctx, narrationKey(symbol, dataHash), &narration); err != nil {
		return "", false
	}
	return narration, true
}

// SetNarration caches a narration result for ttl.
func (c *Cache) SetNarration(ctx context.Context, symbol, dataHash, narration string, ttl time.Duration) error {
	if c.redis == nil {
		return fmt.Errorf("narrative cache: redis not available")
	}
	return c.redis.Set(ctx, narrationKey(symbol, dataHash), narration, ttl)
}

// IsInCooldown reports whether symbol called the LLM too recently.
func (c *Cache) IsInCooldown(ctx context.Context, symbol string) bool {
	if c.redis == nil {
		return false
	}
	var timestamp int64
	if err := c.redis.Get(ctx, cooldownKey(symbol), &timestamp); err != nil {
		return false
	}
	return timestamp > 0
}

// SetCooldown marks symbol as rate-limited for ttl.
func (c *Cache) SetCooldown(ctx context.Context, symbol string, ttl time.Duration) error {
	if c.redis == nil {
		return fmt.Errorf("narrative cache: redis not available")
	}
	return c.redis.Set(ctx, cooldownKey(symbol), time.Now().Unix(), ttl)
}

func narrationKey(symbol, dataHash string) string {
	return fmt.Sprintf("narrative:analysis:%s:%s", symbol, dataHash)
}

func cooldownKey(symbol string) string {
	return fmt.Sprintf("narrative:cooldown:%s", symbol)
}

// DataHash fingerprints whatever drove a narration so a later call with
// identical inputs hits the cache instead of re-prompting the LLM.
func DataHash(v any) string {
	b, _ := json.Marshal(v)
	sum := md5.Sum(b)
	return fmt.Sprintf("%x", sum[:8])
}
