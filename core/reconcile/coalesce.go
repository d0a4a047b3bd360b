package reconcile

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Coalescer collapses concurrent runs of the same key. T accumulates the passes
// of one run and is handed to every caller that joined it.
type Coalescer[T any] struct {
	sf    singleflight.Group
	mu    sync.Mutex
	dirty map[string]bool
}

// NewCoalescer creates an empty Coalescer.
func NewCoalescer[T any]() *Coalescer[T] {
	return &Coalescer[T]{dirty: make(map[string]bool)}
}

// Do runs fn for key unless a run for key is already in flight, in which case the
// caller waits for that run. Triggers that arrive during a run cause it to repeat
// once it finishes, so no trigger is lost. Every pass of a run receives the same
// accumulator, and every caller of the run gets its final value. shared reports
// whether the result came from a run started by another caller.
func (c *Coalescer[T]) Do(ctx context.Context, key string, fn func(ctx context.Context, acc *T) error) (T, bool, error) {
	for {
		c.mark(key)

		v, err, shared := c.sf.Do(key, func() (interface{}, error) {
			var acc T
			// The leader always runs once, even if an earlier run consumed its mark.
			c.take(key)
			for {
				if err := fn(ctx, &acc); err != nil {
					return acc, err
				}
				if !c.take(key) {
					return acc, nil
				}
			}
		})

		result, _ := v.(T)
		// A shared call may have finished its last pass just before our mark landed.
		if !shared || !c.pending(key) || ctx.Err() != nil {
			return result, shared, err
		}
	}
}

func (c *Coalescer[T]) mark(key string) {
	c.mu.Lock()
	c.dirty[key] = true
	c.mu.Unlock()
}

func (c *Coalescer[T]) take(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty[key] {
		delete(c.dirty, key)
		return false
	}
	c.dirty[key] = false
	return true
}

func (c *Coalescer[T]) pending(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty[key]
}
