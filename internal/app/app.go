// Package app wires configuration into the cache store and poe.watch
// service shared by the binaries
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/poewatch/cache"
	"github.com/briangreenhill/poewatch/internal/config"
	"github.com/briangreenhill/poewatch/poewatch"
)

// OpenStore opens the configured cache store. The returned func closes it.
func OpenStore(ctx context.Context, cfg config.Config) (cache.Store, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		return cache.NewMemoryStore(time.Minute), func() {}, nil
	case config.StoreFile:
		s, err := cache.NewFileStore(cfg.CacheDir)
		return s, func() {}, err
	}

	rs, err := cache.NewRedisStore(ctx, cache.RedisOptions{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return nil, nil, err
	}
	return rs, func() { _ = rs.Close() }, nil
}

// NewService builds the client, controller and collections from cfg
func NewService(cfg config.Config, store cache.Store, logger zerolog.Logger) (*poewatch.Service, error) {
	client := poewatch.New(
		poewatch.WithBaseURL(cfg.PoeWatch.BaseURL),
		poewatch.WithTimeout(cfg.PoeWatch.Timeout),
		poewatch.WithLogger(logger.With().Str("component", "client").Logger()),
	)

	opts := []poewatch.ControllerOption{
		poewatch.WithTTL(cfg.PoeWatch.TTL),
		poewatch.WithKeyPrefix(cfg.KeyPrefix),
		poewatch.WithControllerLogger(logger.With().Str("component", "controller").Logger()),
	}
	if cfg.PoeWatch.DistributedLock {
		opts = append(opts, poewatch.WithDistributedLock(cfg.PoeWatch.LockTTL))
	}

	ctrl, err := poewatch.NewController(store, client, opts...)
	if err != nil {
		return nil, err
	}
	return poewatch.NewService(ctrl), nil
}
