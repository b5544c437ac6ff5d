package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	redisclient "github.com/sxk/signal-link/internal/redis"
)

// RedisStore namespaces every key under "device:<namespace>:" so several
// devices can share one Redis instance.
type RedisStore struct {
	client    redis.Cmdable
	namespace string
}

func NewRedisStore(client redis.Cmdable, namespace string) *RedisStore {
	return &RedisStore{client: client, namespace: namespace}
}

func (s *RedisStore) key(key string) string {
	return redisclient.DeviceKey(s.namespace, key)
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
