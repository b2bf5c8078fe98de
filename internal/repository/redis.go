package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"airwave/internal/config"
	"airwave/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisAvailabilityCache caches availability answers per catalog entry and
// date window. Invalidation bumps a per-entry generation counter instead of
// scanning keys, so stale windows simply age out by TTL.
type RedisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) *RedisAvailabilityCache {
	if ttl <= 0 {
		ttl = models.AvailabilityCacheTTL * time.Second
	}
	return &RedisAvailabilityCache{client: client, ttl: ttl}
}

func (r *RedisAvailabilityCache) generation(ctx context.Context, catalogID string) (int64, error) {
	gen, err := r.client.Get(ctx, "availability_gen:"+catalogID).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get cache generation: %w", err)
	}
	return gen, nil
}

func (r *RedisAvailabilityCache) key(catalogID string, gen int64, start, end time.Time) string {
	return fmt.Sprintf("availability:%s:%d:%s:%s",
		catalogID, gen, start.Format(models.DateLayout), end.Format(models.DateLayout))
}

func (r *RedisAvailabilityCache) Get(ctx context.Context, catalogID string, start, end time.Time) (*models.AvailabilityInfo, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}

	gen, err := r.generation(ctx, catalogID)
	if err != nil {
		return nil, false, err
	}

	val, err := r.client.Get(ctx, r.key(catalogID, gen, start, end)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get availability from redis: %w", err)
	}

	var info models.AvailabilityInfo
	if err := json.Unmarshal([]byte(val), &info); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal availability: %w", err)
	}
	return &info, true, nil
}

func (r *RedisAvailabilityCache) Set(ctx context.Context, catalogID string, start, end time.Time, info *models.AvailabilityInfo) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	gen, err := r.generation(ctx, catalogID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal availability: %w", err)
	}

	if err := r.client.Set(ctx, r.key(catalogID, gen, start, end), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set availability in redis: %w", err)
	}
	return nil
}

func (r *RedisAvailabilityCache) Invalidate(ctx context.Context, catalogID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Incr(ctx, "availability_gen:"+catalogID).Err(); err != nil {
		return fmt.Errorf("failed to bump cache generation: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
