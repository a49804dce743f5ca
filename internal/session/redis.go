package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisHashName is appended to the key prefix to name the hash holding the
// Session fields.
const redisHashName = "session"

// RedisBackend stores the Session fields in a single Redis hash.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend creates a backend using the hash "<prefix>session".
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, key: prefix + redisHashName}
}

func (r *RedisBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.HGet(ctx, r.key, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading session key from Redis: %w", err)
	}
	return data, true, nil
}

func (r *RedisBackend) Save(ctx context.Context, key string, value []byte) error {
	if err := r.client.HSet(ctx, r.key, key, value).Err(); err != nil {
		return fmt.Errorf("storing session key in Redis: %w", err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.HDel(ctx, r.key, key).Err(); err != nil {
		return fmt.Errorf("deleting session key from Redis: %w", err)
	}
	return nil
}
