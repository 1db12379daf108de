package credential

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore defines a public type used by goSession APIs.
//
// RedisStore instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// Intended for headless agent deployments where several worker processes share
// one identity. Per-key atomicity comes from Redis itself; no scripting is
// needed because keys are independent.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore describes the newredisstore operation and its observable behavior.
//
// NewRedisStore may return an error when input validation, dependency calls, or security checks fail.
// NewRedisStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("redis client required")
	}
	if prefix == "" {
		prefix = "gs"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + ":cred:" + key
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool) {
	if s == nil || s.rdb == nil {
		return "", false
	}

	v, err := s.rdb.Get(ctx, s.redisKey(key)).Result()
	if err != nil {
		// redis.Nil and transport failures both resolve to absent.
		return "", false
	}
	return v, true
}

// Set describes the set operation and its observable behavior.
//
// Set may return an error when input validation, dependency calls, or security checks fail.
// Set does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.rdb.Set(ctx, s.redisKey(key), value, s.ttl).Err()
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.redisKey(key)).Err()
}
