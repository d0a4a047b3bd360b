package reconcile

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// KeyFunc processes a single key.
type KeyFunc func(ctx context.Context, key string) error

// ForEachKey runs fn for every distinct key with at most workers running at once.
// Duplicate keys are processed once. A failing key is recorded in the report and
// does not stop the others. Once ctx is done no further keys are dispatched.
func ForEachKey(ctx context.Context, keys []string, workers int, fn KeyFunc) KeyReport {
	if workers <= 0 {
		workers = 1
	}

	report := KeyReport{Failed: make(map[string]error)}
	var mu sync.Mutex

	// errgroup is used only for its limiter; workers never return an error so one
	// failure cannot cancel the group.
	var g errgroup.Group
	g.SetLimit(workers)

	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if ctx.Err() != nil {
			report.Skipped++
			continue
		}

		g.Go(func() error {
			err := fn(ctx, key)
			mu.Lock()
			if err != nil {
				report.Failed[key] = err
			} else {
				report.Processed++
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return report
}
