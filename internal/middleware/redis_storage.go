package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage adapts a go-redis client to fiber's Storage interface so the rate
// limiter keeps counters in Redis instead of process memory. Keys are prefixed to
// keep the limiter's entries apart from anything else in the same database.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage wraps the given client for use as limiter storage.
func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client, prefix: "ratelimit:"}
}

// Get retrieves the value for a key, or nil when the key does not exist.
func (s *RedisStorage) Get(key string) ([]byte, error) {
	value, err := s.client.Get(context.Background(), s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return value, err
}

// Set stores a value with the given expiration; zero means no expiry.
func (s *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	return s.client.Set(context.Background(), s.prefix+key, val, exp).Err()
}

// Delete removes a key.
func (s *RedisStorage) Delete(key string) error {
	return s.client.Del(context.Background(), s.prefix+key).Err()
}

// Reset removes all limiter entries.
func (s *RedisStorage) Reset() error {
	ctx := context.Background()
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close is a no-op; the client's lifecycle belongs to the composition root.
func (s *RedisStorage) Close() error {
	return nil
}
