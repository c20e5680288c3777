package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheNotFound)

	require.NoError(t, store.Set(ctx, "k", `[{"id":1}]`))

	ok, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, v)

	size, err := store.Size(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(len(`[{"id":1}]`)), size)

	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"), "deleting a missing key is not an error")

	ok, err = store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreExpire(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	assert.ErrorIs(t, store.Expire(ctx, "missing", time.Second), ErrCacheNotFound)

	require.NoError(t, store.Set(ctx, "k", "v"))
	require.NoError(t, store.Expire(ctx, "k", 20*time.Millisecond))

	ok, _ := store.Exists(ctx, "k")
	assert.True(t, ok)

	time.Sleep(40 * time.Millisecond)

	ok, _ = store.Exists(ctx, "k")
	assert.False(t, ok, "key should expire after its TTL")
}

func TestMemoryStoreLock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	unlock, err := store.Lock(ctx, "lock", time.Minute)
	require.NoError(t, err)

	_, err = store.Lock(ctx, "lock", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, unlock(ctx))

	unlock, err = store.Lock(ctx, "lock", time.Minute)
	require.NoError(t, err, "lock should be free after release")
	require.NoError(t, unlock(ctx))
}
