package watermark

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix starts every watermark key.
const RedisKeyPrefix = "ninox:watermark:"

// RedisStore keeps watermarks in Redis so any host instance can resume a
// trigger. Keys never expire; their lifetime is the workflow's.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	seq, err := s.redis.Get(ctx, RedisKeyPrefix+key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get watermark %q: %w", key, err)
	}
	return seq, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, sequence int64) error {
	if err := validate(key, sequence); err != nil {
		return err
	}
	if err := s.redis.Set(ctx, RedisKeyPrefix+key, sequence, 0).Err(); err != nil {
		return fmt.Errorf("redis set watermark %q: %w", key, err)
	}
	return nil
}
