// Package cache provides the key/value stores the dataset cache is kept in,
// with support for per-key TTLs and existence checks.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheNotFound is returned when a cache entry is not found or expired
	ErrCacheNotFound = errors.New("cache entry not found or expired")

	// ErrLockHeld is returned by Locker.Lock when another holder owns the lock
	ErrLockHeld = errors.New("cache lock already held")
)

// Reader defines the interface for reading cache entries
type Reader interface {
	// Get returns the blob stored under key, or ErrCacheNotFound
	Get(ctx context.Context, key string) (string, error)

	// Exists reports whether key is currently present
	Exists(ctx context.Context, key string) (bool, error)
}

// Writer defines the interface for writing cache entries
type Writer interface {
	// Set stores blob under key, replacing any previous value
	Set(ctx context.Context, key string, blob string) error

	// Expire sets the time to live of an existing key
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Store is the main interface that combines all cache operations
type Store interface {
	Reader
	Writer
}

// Sizer is implemented by stores that can report how much memory a key uses.
type Sizer interface {
	// Size returns the number of bytes used by key, or ErrCacheNotFound
	Size(ctx context.Context, key string) (int64, error)
}

// Locker is implemented by stores that can act as a shared lock between
// processes.
type Locker interface {
	// Lock acquires key for ttl. The returned func releases it.
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, err error)
}
