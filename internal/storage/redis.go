package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "eval-engine:state:"

// RedisStore implements Store on Redis, one prefixed key per bucket
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies connectivity
func NewRedisStore(address, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func redisKey(bucket string) string {
	return redisKeyPrefix + bucket
}

// Get returns the raw bucket value
func (r *RedisStore) Get(ctx context.Context, bucket string) ([]byte, error) {
	data, err := r.client.Get(ctx, redisKey(bucket)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrBucketNotFound
		}
		return nil, fmt.Errorf("failed to read bucket %s: %w", bucket, err)
	}
	return data, nil
}

// Set replaces the bucket value
func (r *RedisStore) Set(ctx context.Context, bucket string, value []byte) error {
	if err := r.client.Set(ctx, redisKey(bucket), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write bucket %s: %w", bucket, err)
	}
	return nil
}

// Reset replaces the bucket with a copy of the canonical value
func (r *RedisStore) Reset(ctx context.Context, bucket string, canonical []byte) error {
	data := make([]byte, len(canonical))
	copy(data, canonical)
	return r.Set(ctx, bucket, data)
}

// Ping verifies Redis connectivity
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
