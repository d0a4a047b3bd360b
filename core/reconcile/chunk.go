package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ChunkFunc loads and processes up to limit rows with a key greater than cursor.
type ChunkFunc func(ctx context.Context, cursor uint, limit int) (Chunk, error)

// RunChunks drives fn over a keyset-paginated backlog until a chunk comes back short.
//
// A chunk that returns an error but advanced the cursor is logged, counted in
// FailedChunks and skipped. A chunk that fails without advancing (the load itself
// failed) ends the sweep with that error. Cancellation is checked before every chunk.
func RunChunks(ctx context.Context, name string, size int, logger *zap.Logger, fn ChunkFunc) (Summary, error) {
	if size <= 0 {
		size = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	start := time.Now()
	summary := Summary{Name: name}

	var cursor uint
	for {
		if err := ctx.Err(); err != nil {
			summary.Cancelled = true
			summary.Duration = time.Since(start)
			return summary, err
		}

		chunk, err := fn(ctx, cursor, size)
		summary.Chunks++
		summary.Rows += chunk.Loaded

		if err != nil {
			if chunk.Loaded == 0 || chunk.Cursor <= cursor {
				summary.FailedChunks++
				summary.Duration = time.Since(start)
				return summary, fmt.Errorf("%s: chunk after %d: %w", name, cursor, err)
			}
			summary.FailedChunks++
			logger.Error("Sweep chunk failed",
				zap.String("sweep", name),
				zap.Uint("cursor", cursor),
				zap.Int("rows", chunk.Loaded),
				zap.Error(err),
			)
		}

		if chunk.Loaded < size {
			break
		}
		cursor = chunk.Cursor
	}

	summary.Duration = time.Since(start)
	logger.Debug("Sweep finished",
		zap.String("sweep", name),
		zap.Int("chunks", summary.Chunks),
		zap.Int("rows", summary.Rows),
		zap.Int("failed_chunks", summary.FailedChunks),
	)
	return summary, nil
}
