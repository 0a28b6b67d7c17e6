// Package cache provides the TTL result cache used by the search
// paths: a key-value space of JSON-encoded documents where expiration
// is a first-class absence condition. Writes are last-writer-wins;
// cached values are always recomputable, so the cache is advisory and
// never the source of truth.
package cache

import (
	"context"
	"time"
)

// Cache abstracts the caching backend so different implementations
// (in-memory, Redis, ...) can sit behind the search paths.
type Cache interface {
	// Get returns the value for key. An expired entry behaves
	// identically to an absent one: (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl, overwriting any previous
	// entry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Exists reports whether key holds an unexpired entry.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the given keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
