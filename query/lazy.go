package query

import (
	"sync"
	"sync/atomic"
)

// Lazy is a compute-once cell. The value is written at most once; until
// then every Get runs fill under a lock so concurrent first reads compute it
// once.
type Lazy[T any] struct {
	mu    sync.Mutex
	done  atomic.Bool
	value T
}

// Get returns the cached value, computing it with fill on first use. fill
// reports whether its result should be kept; errors and unkept results
// leave the cell empty for the next caller.
func (l *Lazy[T]) Get(fill func() (T, bool, error)) (T, error) {
	if l.done.Load() {
		return l.value, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done.Load() {
		return l.value, nil
	}

	v, keep, err := fill()
	if err != nil {
		var zero T
		return zero, err
	}
	if keep {
		l.value = v
		l.done.Store(true)
	}
	return v, nil
}

// Peek returns the value if it has been computed
func (l *Lazy[T]) Peek() (T, bool) {
	if l.done.Load() {
		return l.value, true
	}
	var zero T
	return zero, false
}
