package storage

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore implements Store using ttlcache. Values vanish with the process.
type MemoryStore struct {
	cache  *ttlcache.Cache[string, string]
	closed atomic.Bool
}

// NewMemoryStore creates an in-memory store. A zero ttl keeps values until
// they are removed.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)

	go cache.Start()

	return &MemoryStore{cache: cache}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, ErrClosed
	}
	item := s.cache.Get(key)
	if item == nil || item.IsExpired() {
		return "", false, nil
	}
	return item.Value(), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.cache.Set(key, value, ttlcache.DefaultTTL)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.cache.Delete(key)
	return nil
}

// Close stops the expiry goroutine.
func (s *MemoryStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.cache.Stop()
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
