package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a shared answer cache backed by Redis with native TTL
// expiry. It fails open: any backend error is reported as a cache miss and
// the pipeline recomputes the response.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, tenant, endpoint, params string) ([]byte, bool) {
	data, err := c.client.Get(ctx, cacheKey(tenant, endpoint, params)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("cache_get_degraded", "endpoint", endpoint, "tenant", tenant, "error", err)
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Put(ctx context.Context, tenant, endpoint, params string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, cacheKey(tenant, endpoint, params), value, ttl).Err(); err != nil {
		slog.Warn("cache_put_degraded", "endpoint", endpoint, "tenant", tenant, "error", err)
	}
}
