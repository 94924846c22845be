package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedis creates and validates a go-redis client connection.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// MarkerStore records once-per-period facts such as the daily login.
type MarkerStore interface {
	// MarkOnce sets key until expiresAt and reports whether this call set it.
	MarkOnce(ctx context.Context, key string, expiresAt time.Time) (bool, error)
	// Unmark clears key so the next MarkOnce sets it again
	Unmark(ctx context.Context, key string) error
}

// SnapshotCache stores encoded snapshots under a key
type SnapshotCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisMarker struct {
	rdb *redis.Client
}

func NewRedisMarker(rdb *redis.Client) *RedisMarker {
	return &RedisMarker{rdb: rdb}
}

func (m *RedisMarker) MarkOnce(ctx context.Context, key string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := m.rdb.SetNX(ctx, "marker:"+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis marker: %w", err)
	}
	return ok, nil
}

func (m *RedisMarker) Unmark(ctx context.Context, key string) error {
	if err := m.rdb.Del(ctx, "marker:"+key).Err(); err != nil {
		return fmt.Errorf("redis marker: %w", err)
	}
	return nil
}

type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisCache(rdb *redis.Client, prefix string) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis cache get: %w", err)
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.prefix+key).Err()
}
