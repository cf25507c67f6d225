package api

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "idempotency:"

// RedisDeduper stores Idempotency-Key claims in Redis so retried create
// requests return the task created by the first attempt.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(key string) string {
	return idempotencyKeyPrefix + key
}

func (r *RedisDeduper) Claim(ctx context.Context, key, taskID string) (string, bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(key), taskID, r.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return taskID, true, nil
	}
	existing, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		// Expired or removed between the two calls; try once more.
		ok, err = r.client.SetNX(ctx, r.key(key), taskID, r.ttl).Result()
		if err != nil {
			return "", false, err
		}
		if ok {
			return taskID, true, nil
		}
		existing, err = r.client.Get(ctx, r.key(key)).Result()
	}
	if err != nil {
		return "", false, err
	}
	return existing, false, nil
}

func (r *RedisDeduper) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
