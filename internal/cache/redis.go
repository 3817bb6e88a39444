package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisCache is the optional shared tier, letting replicas reuse each
// other's translations. All failures degrade to cache misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

// NewRedisCache connects to Redis and returns the shared tier.
func NewRedisCache(host string, port int, password string, db int, ttl time.Duration, logger *logrus.Entry) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Password:     password,
		DB:           db,
		PoolSize:     100,
		MinIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis cache")

	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Get retrieves a cached translation. Errors are treated as misses.
func (c *RedisCache) Get(ctx context.Context, key Key) (*CachedTranslation, bool) {
	val, err := c.client.Get(ctx, key.String()).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("Failed to get from cache")
		return nil, false
	}

	var cached CachedTranslation
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		c.logger.WithError(err).Warn("Failed to unmarshal cached translation")
		return nil, false
	}

	return &cached, true
}

// Put stores a translation with the configured TTL. Errors are logged and
// dropped.
func (c *RedisCache) Put(ctx context.Context, key Key, value CachedTranslation) {
	if value.CachedAt.IsZero() {
		value.CachedAt = time.Now()
	}

	val, err := json.Marshal(value)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal translation for cache")
		return
	}

	if err := c.client.Set(ctx, key.String(), val, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Failed to set cache")
	}
}

// HealthCheck checks if Redis is reachable.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
