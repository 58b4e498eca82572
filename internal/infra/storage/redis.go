package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisNamespace = "mawakit:"

// RedisStorage keeps items as plain redis strings under a namespace so Keys
// never sees unrelated data sharing the server.
type RedisStorage struct {
	rdb *redis.Client
}

// NewRedisStorage connects to addr and pings it.
func NewRedisStorage(ctx context.Context, addr, password string) (*RedisStorage, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return &RedisStorage{rdb: rdb}, nil
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, redisNamespace+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("error getting key %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisStorage) Set(ctx context.Context, key, value string) error {
	if err := r.rdb.Set(ctx, redisNamespace+key, value, 0).Err(); err != nil {
		// maxmemory with a noeviction policy rejects writes with an OOM error
		if strings.HasPrefix(err.Error(), "OOM") {
			return fmt.Errorf("error setting key %s: %w", key, ErrQuotaExceeded)
		}
		return fmt.Errorf("error setting key %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) Remove(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, redisNamespace+key).Err(); err != nil {
		return fmt.Errorf("error deleting key %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.rdb.Scan(ctx, 0, redisNamespace+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), redisNamespace))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error scanning keys: %w", err)
	}
	return keys, nil
}

func (r *RedisStorage) Close() error {
	return r.rdb.Close()
}
