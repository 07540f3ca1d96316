// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"time"

	"go.astrophena.name/tinkerbot/internal/syncx"
)

// MemStore is an in-memory implementation of the [Store] interface. Entries
// expire ttl after they were stored.
type MemStore struct {
	ttl   time.Duration
	now   func() time.Time
	cache syncx.Map[string, cacheEntry]
	stop  context.CancelFunc
}

// NewMemStore creates a new MemStore with the given TTL. Expired entries are
// swept until ctx is done or the store is closed.
func NewMemStore(ctx context.Context, ttl time.Duration) *MemStore {
	return newMemStore(ctx, ttl, time.Now)
}

func newMemStore(ctx context.Context, ttl time.Duration, now func() time.Time) *MemStore {
	ctx, cancel := context.WithCancel(ctx)
	s := &MemStore{
		ttl:  ttl,
		now:  now,
		stop: cancel,
	}
	go s.cleanup(ctx)
	return s
}

type cacheEntry struct {
	value   []byte
	expires time.Time
}

func (s *MemStore) cleanup(ctx context.Context) {
	ticker := time.NewTicker(max(s.ttl/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (s *MemStore) sweep() {
	now := s.now()
	s.cache.Range(func(key string, e cacheEntry) bool {
		if now.After(e.expires) {
			s.cache.Delete(key)
		}
		return true
	})
}

// Get retrieves a value for a given key.
func (s *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := s.cache.Load(key)
	if !ok {
		return nil, nil
	}
	if s.now().After(e.expires) {
		s.cache.Delete(key)
		return nil, nil
	}
	// Return a copy to prevent the caller from mutating the cache.
	return append([]byte(nil), e.value...), nil
}

// Set stores a value for a given key.
func (s *MemStore) Set(_ context.Context, key string, value []byte) error {
	s.cache.Store(key, cacheEntry{
		value:   append([]byte(nil), value...),
		expires: s.now().Add(s.ttl),
	})
	return nil
}

// Len returns the number of entries, including expired ones not yet swept.
func (s *MemStore) Len() int { return s.cache.Len() }

// Close stops the sweeper.
func (s *MemStore) Close() error {
	s.stop()
	return nil
}

var _ Store = (*MemStore)(nil)
