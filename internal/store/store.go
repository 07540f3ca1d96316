// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package store implements an expiring in-memory key-value store.
//
// The bot uses it to cache raw file contents fetched from GitHub.
package store

import "context"

// Store is a generic interface for a key-value store.
type Store interface {
	// Get retrieves a value for a given key.
	// It must return (nil, nil) if the key is not found.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value for a given key.
	Set(ctx context.Context, key string, value []byte) error
	// Close closes the store and releases any resources.
	Close() error
}

// Cached returns the value stored for key in s, calling fetch and storing its
// result on a miss. Failed fetches are not cached.
func Cached(ctx context.Context, s Store, key string, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := s.Get(ctx, key); err == nil && b != nil {
		return b, nil
	}
	b, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Set(ctx, key, b); err != nil {
		return nil, err
	}
	return b, nil
}
