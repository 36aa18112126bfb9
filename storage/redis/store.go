package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.pilab.hu/storefront/storage"
)

// Store implements storage.Store on a Redis server. It suits shared kiosk or
// terminal deployments where several client processes use one session slot.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStore creates a Store. A zero ttl keeps values until they are removed.
func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// redisKey returns the Redis key for a slot key.
func (s *Store) redisKey(key string) string {
	if s.prefix == "" {
		return "vault:" + key
	}
	return fmt.Sprintf("%s:vault:%s", s.prefix, key)
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: redis get: %v", storage.ErrUnavailable, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.redisKey(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", storage.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %v", storage.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ storage.Store = (*Store)(nil)
