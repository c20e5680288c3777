package poewatch

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// datasetLoader feeds one cached dataset to a query collection
type datasetLoader struct {
	ctrl    *Controller
	dataset Dataset
	logger  zerolog.Logger
}

// Ensure refreshes the cache if needed. A refresh already running elsewhere
// is not an error here: the query reads whatever is cached.
func (l datasetLoader) Ensure(ctx context.Context) error {
	_, err := l.ctrl.Refresh(ctx)
	if errors.Is(err, ErrRefreshInProgress) {
		l.logger.Debug().Str("dataset", string(l.dataset)).Msg("refresh in progress, serving cached data")
		return nil
	}
	return err
}

func (l datasetLoader) Load(ctx context.Context) ([]byte, bool, error) {
	return l.ctrl.Dataset(ctx, l.dataset)
}
