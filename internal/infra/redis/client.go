package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
)

// Cache stores idempotency records in Redis.
type Cache struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewCache creates a new Redis-backed idempotency cache.
func NewCache(cfg Config) (*Cache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Ping checks the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func recordKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}

// Has reports whether a record exists for the key.
func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, recordKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("exists failed: %w", err)
	}
	return n > 0, nil
}

// Get returns the stored result for the key, or nil on miss.
func (c *Cache) Get(ctx context.Context, key string) (*domain.Result, error) {
	val, err := c.rdb.Get(ctx, recordKey(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}

	var res domain.Result
	if err := json.Unmarshal([]byte(val), &res); err != nil {
		return nil, fmt.Errorf("invalid record format: %w", err)
	}
	return &res, nil
}

// Set stores the result under the key only if no record exists yet.
// Returns false when another writer already holds the key.
func (c *Cache) Set(ctx context.Context, key string, res *domain.Result, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return false, fmt.Errorf("failed to marshal record: %w", err)
	}

	ok, err := c.rdb.SetNX(ctx, recordKey(key), data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// Delete removes the record for the key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, recordKey(key)).Err()
}
