package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore implements Store, Sizer and Locker on top of go-redis.
type RedisStore struct {
	client redis.UniversalClient
}

// RedisOptions holds connection settings for NewRedisStore
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and checks the connection with a PING.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	// Check connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Get implements Reader interface
func (rs *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := rs.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheNotFound
	}
	return v, err
}

// Exists implements Reader interface
func (rs *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := rs.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Set implements Writer interface
func (rs *RedisStore) Set(ctx context.Context, key string, blob string) error {
	return rs.client.Set(ctx, key, blob, 0).Err()
}

// Expire implements Writer interface
func (rs *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := rs.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrCacheNotFound
	}
	return nil
}

// Delete implements Writer interface
func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	return rs.client.Del(ctx, key).Err()
}

// Size implements Sizer interface with MEMORY USAGE
func (rs *RedisStore) Size(ctx context.Context, key string) (int64, error) {
	n, err := rs.client.MemoryUsage(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheNotFound
	}
	return n, err
}

// Lock implements Locker with SET NX PX and a random token, released by a
// compare-and-delete script so an expired lock taken over by someone else
// is never removed.
func (rs *RedisStore) Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()

	ok, err := rs.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	unlock := func(ctx context.Context) error {
		return releaseScript.Run(ctx, rs.client, []string{key}, token).Err()
	}
	return unlock, nil
}

// Close closes the underlying client
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
