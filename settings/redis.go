package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKey = "pressroom:site-settings"

// RedisCache keeps the last fetched settings in Redis for ttl.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache returns a cache on rdb.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// ConnectRedis parses url, connects, and verifies connectivity.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// Get returns the cached settings, or ok=false on a miss.
func (c *RedisCache) Get(ctx context.Context) (Settings, bool, error) {
	val, err := c.rdb.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, err
	}
	var s Settings
	if err := json.Unmarshal(val, &s); err != nil {
		return Settings{}, false, fmt.Errorf("decode cached settings: %w", err)
	}
	return s, true, nil
}

// Set stores s for the cache ttl.
func (c *RedisCache) Set(ctx context.Context, s Settings) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, redisKey, b, c.ttl).Err()
}

// Invalidate drops the cached copy after settings change.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, redisKey).Err()
}
