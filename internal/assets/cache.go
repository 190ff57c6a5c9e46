package assets

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"pressline/internal/config"
)

// Cache stores recent probe results so repeated validations of popular hosts
// do not re-probe every URL.
type Cache interface {
	Get(ctx context.Context, url string) (Result, bool, error)
	Set(ctx context.Context, result Result, ttl time.Duration) error
}

const redisKeyPrefix = "pressline:asset:"

// RedisCache is a Cache backed by redis string keys with TTLs.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the redis server named in cfg. It returns nil
// when no address is configured.
func NewRedisCache(cfg config.Assets) *RedisCache {
	if cfg.RedisAddr == "" {
		return nil
	}
	return &RedisCache{client: redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})}
}

// Get returns the cached result for url.
func (c *RedisCache) Get(ctx context.Context, url string) (Result, bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+url).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, false, err
	}
	return result, true, nil
}

// Set stores result for ttl.
func (c *RedisCache) Set(ctx context.Context, result Result, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, redisKeyPrefix+result.URL, data, ttl).Err()
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
