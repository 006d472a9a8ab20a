package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/wonny/quantgem/backend/pkg/logger"
)

// MemoryCache is an in-process query cache used when Redis is disabled.
// Values are stored as JSON so reads decode into fresh copies, the same
// way the Redis cache behaves.
// ⭐ SSOT: 프로세스 내 조회 캐시는 이 구조체에서만
type MemoryCache struct {
	items      *gocache.Cache
	generation atomic.Int64
	logger     *logger.Logger
}

// NewMemoryCache creates a new memory cache. ttl <= 0 keeps entries until
// the next Bump; otherwise go-cache's janitor sweeps expired entries.
func NewMemoryCache(ttl time.Duration, log *logger.Logger) *MemoryCache {
	expiration, cleanup := gocache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		expiration, cleanup = ttl, 2*ttl
	}
	return &MemoryCache{
		items:  gocache.New(expiration, cleanup),
		logger: log.WithField("module", "cache.memory"),
	}
}

// Get retrieves a cached value. Expired entries count as a miss.
func (c *MemoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	cached, found := c.items.Get(key)
	if !found {
		return false, nil
	}

	data, ok := cached.([]byte)
	if !ok {
		return false, fmt.Errorf("cached %s: unexpected type %T", key, cached)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set stores a value
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", key, err)
	}

	c.items.Set(key, data, gocache.DefaultExpiration)
	return nil
}

// Generation returns the current key generation
func (c *MemoryCache) Generation(ctx context.Context) (int64, error) {
	return c.generation.Load(), nil
}

// Bump advances the generation and drops every entry
func (c *MemoryCache) Bump(ctx context.Context) (int64, error) {
	gen := c.generation.Add(1)
	c.items.Flush()

	c.logger.WithField("generation", gen).Debug("Memory cache flushed")
	return gen, nil
}

// Len returns the number of entries in cache, expired ones included until swept
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}
