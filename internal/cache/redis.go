package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/opd-queue/internal/model"
)

type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttlOrDefault(ttl)}
}

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (c *RedisCache) Generation(ctx context.Context, doctorID uuid.UUID, date model.Date) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(doctorID, date)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read queue status generation: %w", err)
	}
	return gen, nil
}

// Get reads the entry and the current generation in one round trip.
func (c *RedisCache) Get(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.QueueStatus, error) {
	vals, err := c.client.MGet(ctx, key(doctorID, date), generationKey(doctorID, date)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue status: %w", err)
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, ErrMiss
	}

	var current int64
	if s, ok := vals[1].(string); ok {
		if current, err = strconv.ParseInt(s, 10, 64); err != nil {
			return nil, fmt.Errorf("failed to decode queue status generation: %w", err)
		}
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("failed to decode queue status: %w", err)
	}
	if e.Generation != current {
		return nil, ErrMiss
	}
	return &e.Status, nil
}

func (c *RedisCache) Set(ctx context.Context, status *model.QueueStatus, generation int64) error {
	data, err := json.Marshal(entry{Generation: generation, Status: *status})
	if err != nil {
		return fmt.Errorf("failed to encode queue status: %w", err)
	}
	if err := c.client.Set(ctx, key(status.DoctorID, status.Date), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write queue status: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, doctorID uuid.UUID, date model.Date) error {
	genKey := generationKey(doctorID, date)
	if err := c.client.Incr(ctx, genKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate queue status: %w", err)
	}
	if err := c.client.Expire(ctx, genKey, generationTTL).Err(); err != nil {
		return fmt.Errorf("failed to invalidate queue status: %w", err)
	}
	if err := c.client.Del(ctx, key(doctorID, date)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate queue status: %w", err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
