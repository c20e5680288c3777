package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/poewatch/poewatch"
)

// Refresher refetches the cached datasets whether or not they are present
type Refresher interface {
	ForceRefreshTTL(ctx context.Context, ttl time.Duration) (bool, error)
}

// RefreshHandler processes TaskRefreshDatasets
type RefreshHandler struct {
	Refresher Refresher
	Logger    zerolog.Logger
}

// ProcessTask replaces the cached datasets and renews their TTL, so a
// schedule shorter than the TTL keeps the cache from ever expiring. A
// refresh already running is dropped since the other one does the same
// work. Remote failures are returned so asynq retries them; a bad payload
// is never retried.
func (h RefreshHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p RefreshDatasetsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			h.Logger.Error().Err(err).Msg("bad refresh payload")
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	start := time.Now()
	refreshed, err := h.Refresher.ForceRefreshTTL(ctx, p.TTL())
	duration := time.Since(start)

	switch {
	case errors.Is(err, poewatch.ErrRefreshInProgress):
		h.Logger.Info().Dur("duration", duration).Msg("refresh already in progress, dropping task")
		return nil
	case errors.Is(err, poewatch.ErrNotConfigured):
		h.Logger.Error().Err(err).Msg("refresh not configured, dropping task")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	case err != nil:
		h.Logger.Warn().Err(err).Dur("duration", duration).Msg("refresh failed, will retry")
		return err
	}

	h.Logger.Info().Bool("refreshed", refreshed).Dur("duration", duration).Msg("refresh done")
	return nil
}
