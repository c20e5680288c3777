package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore implements Store in process memory on top of go-cache.
// Useful for tests and single-process deployments.
type MemoryStore struct {
	items *gocache.Cache
}

// NewMemoryStore creates an in-memory store. cleanupInterval controls how
// often expired keys are purged; zero disables the janitor.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = -1
	}
	return &MemoryStore{items: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Get implements Reader interface
func (ms *MemoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := ms.items.Get(key)
	if !ok {
		return "", ErrCacheNotFound
	}
	return v.(string), nil
}

// Exists implements Reader interface
func (ms *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := ms.items.Get(key)
	return ok, nil
}

// Set implements Writer interface. The key does not expire until Expire is called.
func (ms *MemoryStore) Set(_ context.Context, key string, blob string) error {
	ms.items.Set(key, blob, gocache.NoExpiration)
	return nil
}

// Expire implements Writer interface
func (ms *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	v, ok := ms.items.Get(key)
	if !ok {
		return ErrCacheNotFound
	}
	if ttl <= 0 {
		ms.items.Delete(key)
		return nil
	}
	ms.items.Set(key, v, ttl)
	return nil
}

// Delete implements Writer interface
func (ms *MemoryStore) Delete(_ context.Context, key string) error {
	ms.items.Delete(key)
	return nil
}

// Size implements Sizer interface
func (ms *MemoryStore) Size(_ context.Context, key string) (int64, error) {
	v, ok := ms.items.Get(key)
	if !ok {
		return 0, ErrCacheNotFound
	}
	return int64(len(v.(string))), nil
}

// Lock implements Locker. go-cache's Add refuses to overwrite a live key,
// which gives SET NX semantics inside one process.
func (ms *MemoryStore) Lock(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	if err := ms.items.Add(key, token, ttl); err != nil {
		return nil, ErrLockHeld
	}

	unlock := func(context.Context) error {
		if v, ok := ms.items.Get(key); ok && v == token {
			ms.items.Delete(key)
		}
		return nil
	}
	return unlock, nil
}
