// Package query answers attribute queries over materialized datasets.
package query

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/tidwall/gjson"

	"github.com/briangreenhill/poewatch/record"
)

// ErrMalformedDataset is returned when a cached dataset is not a JSON array
var ErrMalformedDataset = errors.New("dataset is not a JSON array")

// Loader keeps a dataset fresh and reads its raw JSON
type Loader interface {
	// Ensure makes sure the dataset is cached before it is read
	Ensure(ctx context.Context) error

	// Load returns the raw dataset and false if it is not cached
	Load(ctx context.Context) ([]byte, bool, error)
}

// Builder turns a materialized record into an entity of kind T
type Builder[T Fielder] func(e *record.Entity) (T, error)

// Collection is the queryable set of entities of one kind. The entities
// are materialized on first access and kept for the life of the
// collection.
type Collection[T Fielder] struct {
	name   string
	loader Loader
	build  Builder[T]
	cell   Lazy[[]T]
}

// NewCollection creates a collection named name
func NewCollection[T Fielder](name string, loader Loader, build Builder[T]) *Collection[T] {
	return &Collection[T]{name: name, loader: loader, build: build}
}

// Name returns the collection name
func (c *Collection[T]) Name() string { return c.name }

// All returns every entity in source order. An absent or empty dataset
// gives an empty result.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	if err := c.loader.Ensure(ctx); err != nil {
		return nil, err
	}
	return c.all(ctx)
}

// Count returns the number of entities without materializing them when
// they are not loaded yet.
func (c *Collection[T]) Count(ctx context.Context) (int, error) {
	if err := c.loader.Ensure(ctx); err != nil {
		return 0, err
	}

	if items, ok := c.cell.Peek(); ok {
		return len(items), nil
	}

	raw, ok, err := c.loader.Load(ctx)
	if err != nil || !ok {
		return 0, err
	}

	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		return 0, fmt.Errorf("%s: %w", c.name, ErrMalformedDataset)
	}
	return int(parsed.Get("#").Int()), nil
}

// Where returns every entity matching all predicates, in source order
func (c *Collection[T]) Where(ctx context.Context, p Predicates) ([]T, error) {
	if err := c.loader.Ensure(ctx); err != nil {
		return nil, err
	}

	items, err := c.all(ctx)
	if err != nil {
		return nil, err
	}

	if len(p) == 0 {
		return items, nil
	}

	matched := make([]T, 0)
	for _, item := range items {
		if p.Match(item) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

// Find returns the first entity matching all predicates. ok is false when
// nothing matches.
func (c *Collection[T]) Find(ctx context.Context, p Predicates) (item T, ok bool, err error) {
	if err := c.loader.Ensure(ctx); err != nil {
		return item, false, err
	}

	items, err := c.all(ctx)
	if err != nil {
		return item, false, err
	}

	for _, it := range items {
		if p.Match(it) {
			return it, true, nil
		}
	}
	return item, false, nil
}

func (c *Collection[T]) all(ctx context.Context) ([]T, error) {
	items, err := c.cell.Get(func() ([]T, bool, error) {
		return c.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(items), nil
}

// load materializes the dataset. Only a non-empty result is kept so an
// empty cache read is retried on the next call.
func (c *Collection[T]) load(ctx context.Context) ([]T, bool, error) {
	raw, ok, err := c.loader.Load(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", c.name, err)
	}
	if !ok {
		return []T{}, false, nil
	}

	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		return nil, false, fmt.Errorf("%s: %w", c.name, ErrMalformedDataset)
	}

	items := make([]T, 0, int(parsed.Get("#").Int()))
	var buildErr error
	parsed.ForEach(func(key, value gjson.Result) bool {
		e, err := record.FromJSON(value)
		if err != nil {
			buildErr = fmt.Errorf("%s[%d]: %w", c.name, len(items), err)
			return false
		}
		item, err := c.build(e)
		if err != nil {
			buildErr = fmt.Errorf("%s[%d]: %w", c.name, len(items), err)
			return false
		}
		items = append(items, item)
		return true
	})
	if buildErr != nil {
		return nil, false, buildErr
	}

	return items, len(items) > 0, nil
}
