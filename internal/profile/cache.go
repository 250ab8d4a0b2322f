package profile

import (
	"context"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tener/recruit-core/internal/platform/envutil"
	"github.com/tener/recruit-core/internal/platform/logger"
)

// Cache is the TTL store behind LLM explanations. Both backends are
// best-effort: a miss (or a broken backend) just means the
// explanation is recomputed.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is the in-process fallback used when no redis address
// is configured (and in tests).
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

// RedisCache shares explanation cache entries across processes.
type RedisCache struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisCache(log *logger.Logger, addr string) *RedisCache {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
		ReadTimeout: 2 * time.Second,
	})
	return &RedisCache{log: log.With("service", "RedisCache"), rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		c.log.Warn("cache set failed", "error", err)
	}
}

// NewCacheFromEnv picks redis when REDIS_ADDR is set, else memory.
func NewCacheFromEnv(log *logger.Logger) Cache {
	if addr := strings.TrimSpace(envutil.String("REDIS_ADDR", "")); addr != "" {
		return NewRedisCache(log, addr)
	}
	return NewMemoryCache()
}
