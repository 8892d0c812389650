package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"unitbook/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisAvailabilityCache хранит количество доступных юнитов под постоянным
// ключом. TTL — страховка: основной механизм консистентности это
// инвалидация при каждой операции, меняющей доступность.
type RedisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает клиент Redis по конфигурации.
func NewRedisClient(addr, password string, db, poolSize int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
}

func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) *RedisAvailabilityCache {
	if ttl <= 0 {
		ttl = time.Duration(models.DefaultCacheTTL) * time.Second
	}
	return &RedisAvailabilityCache{client: client, ttl: ttl}
}

func (c *RedisAvailabilityCache) Get(ctx context.Context) (int64, bool, error) {
	if c.client == nil {
		return 0, false, fmt.Errorf("redis client is nil")
	}
	val, err := c.client.Get(ctx, models.AvailableCountCacheKey).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get count from redis: %w", err)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse cached count: %w", err)
	}
	return count, true, nil
}

func (c *RedisAvailabilityCache) Set(ctx context.Context, count int64) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := c.client.Set(ctx, models.AvailableCountCacheKey, count, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set count in redis: %w", err)
	}
	return nil
}

func (c *RedisAvailabilityCache) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := c.client.Del(ctx, models.AvailableCountCacheKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate count in redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
