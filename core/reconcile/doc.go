// Package reconcile provides the generic runtime used by the glass reconciliation sweeps.
//
// The sweeps have to process backlogs of tens of thousands of line items without one
// unbounded pass, keep one order's failure from blocking the others, and tolerate
// being triggered from several places at once. The package covers those concerns and
// knows nothing about glass, orders or deliveries.
//
// # Components
//
// 1. ForEachKey: fans a set of distinct keys out to a bounded pool of workers. Errors
// are recorded per key; they never cancel sibling keys.
//
// 2. RunChunks: drives a keyset-paginated loop. Each chunk loads at most ChunkSize rows
// after a cursor and commits independently. A failed chunk is logged and counted; the
// loop moves past it so the next run can retry. Cancellation stops scheduling further
// chunks and leaves committed chunks in place.
//
// 3. Coalescer: collapses concurrent triggers for the same key into one in-flight run.
// A trigger arriving while a run is in progress marks the key dirty, which makes the
// running call go around once more instead of starting a second concurrent run. Every
// caller of a run receives the run's accumulated result.
//
// # Usage Example
//
//	summary, err := reconcile.RunChunks(ctx, "rematch:delivery_items", cfg.ChunkSize, logger,
//	    func(ctx context.Context, cursor uint, limit int) (reconcile.Chunk, error) {
//	        items, err := loadAfter(ctx, cursor, limit)
//	        if err != nil {
//	            return reconcile.Chunk{Cursor: cursor}, err
//	        }
//	        ...
//	        return reconcile.Chunk{Cursor: items[len(items)-1].ID, Loaded: len(items)}, nil
//	    })
package reconcile
