package redisCache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"aws-sqs-http-gateway/internal/pkg/cache"
)

// Commands is the part of the redis client the cache uses.
type Commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisRepository implements the cache.Client interface using Redis as backend.
type RedisRepository struct {
	Client Commands // Redis client instance
	Config *Config  // Configuration for Redis cache
}

var _ cache.Client = (*RedisRepository)(nil)

type Config struct {
	KeyPrefix string // Prefix for dedup keys in Redis
}

// NewClient creates a new redis client
func NewClient(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       addr,
		Password:   "",
		DB:         db,
		MaxRetries: 10,
	})
}

// Key prefixes id with the configured key prefix.
func (r *RedisRepository) Key(id string) string {
	return r.Config.KeyPrefix + id
}

// Get retrieves a value by key from Redis. A missing key yields cache.ErrNotFound.
func (r *RedisRepository) Get(ctx context.Context, key string) (string, error) {
	v, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", cache.ErrNotFound
	}
	return v, err
}

// Set sets a value with expiration in Redis.
func (r *RedisRepository) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return r.Client.Set(ctx, key, value, expiration).Err()
}
