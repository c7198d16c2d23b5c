package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Store backed by Redis. Every write refreshes the
// entry's expiry to ttl; zero disables expiry.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) Store {
	if prefix == "" {
		prefix = "storefront"
	}
	return &redisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *redisStore) key(session, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, session, key)
}

func (s *redisStore) Get(ctx context.Context, session, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.key(session, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func (s *redisStore) Set(ctx context.Context, session, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(session, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, session, key string) error {
	if err := s.client.Del(ctx, s.key(session, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
