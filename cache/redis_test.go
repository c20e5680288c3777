package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRedisStore runs against a real Redis server
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis store test")
	}

	ctx := context.Background()
	store, err := NewRedisStore(ctx, RedisOptions{Addr: addr})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	key := "poe_watch_test_" + uuid.NewString()
	defer func() { _ = store.Delete(ctx, key) }()

	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheNotFound)
	assert.ErrorIs(t, store.Expire(ctx, key, time.Minute), ErrCacheNotFound)

	require.NoError(t, store.Set(ctx, key, `{"a":1}`))
	require.NoError(t, store.Expire(ctx, key, time.Minute))

	v, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)

	size, err := store.Size(ctx, key)
	require.NoError(t, err)
	assert.Positive(t, size)

	unlock, err := store.Lock(ctx, key+":lock", time.Minute)
	require.NoError(t, err)
	_, err = store.Lock(ctx, key+":lock", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)
	require.NoError(t, unlock(ctx))

	require.NoError(t, store.Delete(ctx, key))
	ok, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
