package poewatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/briangreenhill/poewatch/cache"
)

// Fetcher is the remote data source the controller refreshes from
type Fetcher interface {
	Get(ctx context.Context, path string, params map[string]string) ([]byte, error)
}

// refreshLockName is the store key guarding refreshes across processes
const refreshLockName = "refresh"

// Controller keeps the bulk datasets cached. It refreshes all of them
// together whenever any one is missing and refuses overlapping refreshes.
type Controller struct {
	store  cache.Store
	source Fetcher
	keys   cache.KeySpace
	ttl    time.Duration
	logger zerolog.Logger

	// distributed refresh lock, used only when the store is a cache.Locker
	distributed bool
	lockTTL     time.Duration

	refreshing atomic.Bool
}

type ControllerOption func(*Controller)

// WithTTL sets the default dataset TTL
func WithTTL(ttl time.Duration) ControllerOption {
	return func(c *Controller) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyPrefix namespaces dataset keys, default poe_watch_
func WithKeyPrefix(prefix string) ControllerOption {
	return func(c *Controller) { c.keys = cache.NewKeySpace(prefix) }
}

// WithControllerLogger sets the controller logger
func WithControllerLogger(l zerolog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// WithDistributedLock also takes a store-level lock for ttl around each
// refresh so several processes sharing one store do not refresh at once.
func WithDistributedLock(ttl time.Duration) ControllerOption {
	return func(c *Controller) {
		c.distributed = true
		c.lockTTL = ttl
	}
}

// NewController creates a controller over store, refreshing from source
func NewController(store cache.Store, source Fetcher, opts ...ControllerOption) (*Controller, error) {
	if store == nil || source == nil {
		return nil, ErrNotConfigured
	}

	c := &Controller{
		store:   store,
		source:  source,
		keys:    cache.NewKeySpace(cache.DefaultPrefix),
		ttl:     DefaultTTL,
		logger:  zerolog.Nop(),
		lockTTL: time.Minute,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Source returns the remote data source
func (c *Controller) Source() Fetcher { return c.source }

// TTL returns the default dataset TTL
func (c *Controller) TTL() time.Duration { return c.ttl }

// Key returns the cache key of d
func (c *Controller) Key(d Dataset) string { return c.keys.Key(string(d)) }

// Refresh refreshes the datasets with the default TTL
func (c *Controller) Refresh(ctx context.Context) (bool, error) {
	return c.RefreshTTL(ctx, c.ttl)
}

// RefreshTTL fetches every dataset and caches it for ttl when any dataset
// is missing. It returns false without error when the cache is already
// ready and ErrRefreshInProgress when another refresh is running.
//
// The three fetches run concurrently and nothing is written unless all of
// them succeed. A store failure while writing leaves the keys written so
// far in place.
func (c *Controller) RefreshTTL(ctx context.Context, ttl time.Duration) (bool, error) {
	return c.refresh(ctx, ttl, false)
}

// ForceRefreshTTL is RefreshTTL without the readiness check: it refetches
// every dataset and renews the TTLs even when all keys are present. Scheduled
// refreshes use it to replace the datasets before they expire.
func (c *Controller) ForceRefreshTTL(ctx context.Context, ttl time.Duration) (bool, error) {
	return c.refresh(ctx, ttl, true)
}

func (c *Controller) refresh(ctx context.Context, ttl time.Duration, force bool) (bool, error) {
	// a ready cache needs nothing, so it never reports a refresh in progress
	if !force {
		if ready, err := c.checkReady(ctx); err != nil || ready {
			return false, err
		}
	}

	if !c.refreshing.CompareAndSwap(false, true) {
		return false, ErrRefreshInProgress
	}
	defer c.refreshing.Store(false)

	// another refresh may have finished between the check and the flag
	if !force {
		if ready, err := c.checkReady(ctx); err != nil || ready {
			return false, err
		}
	}

	if c.distributed {
		if locker, ok := c.store.(cache.Locker); ok {
			unlock, err := locker.Lock(ctx, c.keys.LockKey(refreshLockName), c.lockTTL)
			if errors.Is(err, cache.ErrLockHeld) {
				return false, ErrRefreshInProgress
			}
			if err != nil {
				return false, err
			}
			defer func() {
				if err := unlock(context.WithoutCancel(ctx)); err != nil {
					c.logger.Warn().Err(err).Msg("release refresh lock")
				}
			}()

			// the previous lock holder may have filled the cache
			if !force {
				if ready, err := c.checkReady(ctx); err != nil || ready {
					return false, err
				}
			}
		}
	}

	if ttl <= 0 {
		ttl = c.ttl
	}

	start := time.Now()
	c.logger.Info().Dur("ttl", ttl).Bool("forced", force).Msg("refreshing poe.watch datasets")

	bodies, err := c.fetchAll(ctx)
	if err != nil {
		c.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("refresh failed")
		return false, err
	}

	for i, d := range Datasets {
		if err := c.write(ctx, d, bodies[i], ttl); err != nil {
			return false, err
		}
	}

	c.logger.Info().Dur("duration", time.Since(start)).Msg("poe.watch datasets refreshed")
	return true, nil
}

func (c *Controller) checkReady(ctx context.Context) (bool, error) {
	ready, err := c.Ready(ctx)
	if err != nil {
		return false, fmt.Errorf("check cache: %w", err)
	}
	return ready, nil
}

// write stores one dataset with its TTL. A key whose TTL cannot be set is
// deleted again: a key without TTL would keep the cache ready forever.
func (c *Controller) write(ctx context.Context, d Dataset, body []byte, ttl time.Duration) error {
	key := c.Key(d)
	if err := c.store.Set(ctx, key, string(body)); err != nil {
		return fmt.Errorf("cache %s: %w", d, err)
	}
	if err := c.store.Expire(ctx, key, ttl); err != nil {
		if delErr := c.store.Delete(ctx, key); delErr != nil {
			c.logger.Error().Err(delErr).Str("key", key).Msg("delete key without ttl")
		}
		return fmt.Errorf("expire %s: %w", d, err)
	}
	return nil
}

func (c *Controller) fetchAll(ctx context.Context) ([][]byte, error) {
	bodies := make([][]byte, len(Datasets))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range Datasets {
		g.Go(func() error {
			body, err := c.source.Get(gctx, d.Path(), nil)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", d, err)
			}
			if !gjson.ValidBytes(body) {
				return fmt.Errorf("fetch %s: %w", d, ErrBadResponse)
			}
			bodies[i] = body
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bodies, nil
}

// Refreshing reports whether a refresh is running in this process
func (c *Controller) Refreshing() bool { return c.refreshing.Load() }

// Ready reports whether every dataset is cached
func (c *Controller) Ready(ctx context.Context) (bool, error) {
	for _, d := range Datasets {
		ok, err := c.store.Exists(ctx, c.Key(d))
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Dataset returns the cached JSON of d and false when it is not cached
func (c *Controller) Dataset(ctx context.Context, d Dataset) ([]byte, bool, error) {
	blob, err := c.store.Get(ctx, c.Key(d))
	if errors.Is(err, cache.ErrCacheNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", d, err)
	}
	return []byte(blob), true, nil
}

// FetchDataset returns the decoded JSON of d, or nil when it is not cached
func (c *Controller) FetchDataset(ctx context.Context, d Dataset) (any, error) {
	raw, ok, err := c.Dataset(ctx, d)
	if err != nil || !ok {
		return nil, err
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", d, err)
	}
	return out, nil
}

// Clear deletes every dataset key
func (c *Controller) Clear(ctx context.Context) error {
	var errs []error
	for _, d := range Datasets {
		if err := c.store.Delete(ctx, c.Key(d)); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", d, err))
		}
	}
	return errors.Join(errs...)
}

// MemoryFootprint returns the size in KB of each cached dataset. Missing
// datasets are left out and stores that cannot report sizes give an empty
// map.
func (c *Controller) MemoryFootprint(ctx context.Context) (map[Dataset]float64, error) {
	out := make(map[Dataset]float64, len(Datasets))

	sizer, ok := c.store.(cache.Sizer)
	if !ok {
		return out, nil
	}

	for _, d := range Datasets {
		size, err := sizer.Size(ctx, c.Key(d))
		if errors.Is(err, cache.ErrCacheNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("size of %s: %w", d, err)
		}
		out[d] = float64(size) / 1024.0
	}
	return out, nil
}
