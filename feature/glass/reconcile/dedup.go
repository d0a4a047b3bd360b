package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	sweep "glass-tracker/core/reconcile"
	"glass-tracker/core/utils"
	"glass-tracker/feature/glass/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DedupResult reports one deduplication pass over a batch.
type DedupResult struct {
	Kind    models.ItemKind `json:"kind"`
	BatchID uint            `json:"batch_id"`
	DryRun  bool            `json:"dry_run"`
	// Groups counts duplicate groups (keys seen more than once).
	Groups int `json:"groups"`
	// Duplicates counts rows beyond the first in each group.
	Duplicates int `json:"duplicates"`
	// Deleted counts rows actually removed; zero on a dry run.
	Deleted int          `json:"deleted"`
	Settle  SettleReport `json:"settle"`

	orders utils.StringSet
	raws   utils.StringSet
}

// Orders returns the order numbers whose matched items were removed.
func (r DedupResult) Orders() []string { return r.orders.Sorted() }

type dedupRow struct {
	ID                 uint
	OrderNumber        string
	Position           string
	WidthMm            int
	HeightMm           int
	Quantity           int
	Composition        string
	MatchStatus        models.MatchStatus
	MatchedOrderNumber string
	CreatedAt          time.Time
}

type dedupKey struct {
	orderNumber string
	position    string
	composition string
	width       int
	height      int
	quantity    int
}

func (t itemTable) keyOf(r dedupRow) dedupKey {
	k := dedupKey{orderNumber: r.OrderNumber, width: r.WidthMm, height: r.HeightMm, quantity: r.Quantity}
	if t.kind == models.KindDeliveryItem {
		k.position = r.Position
	} else {
		k.composition = r.Composition
	}
	return k
}

func (t itemTable) dedupColumns() string {
	if t.kind == models.KindDeliveryItem {
		return "id, order_number, position, width_mm, height_mm, quantity, match_status, matched_order_number, created_at"
	}
	return "id, order_number, width_mm, height_mm, quantity, composition, match_status, matched_order_number, created_at"
}

// DedupBatch removes duplicate line items from one batch, keeping the earliest created
// row of each group (ties by id), then recomputes and refreshes whatever the removed
// rows touched. A second run deletes nothing.
func (e *Engine) DedupBatch(ctx context.Context, kind models.ItemKind, batchID uint, dryRun bool) (DedupResult, error) {
	t, err := tableFor(kind)
	if err != nil {
		return DedupResult{}, err
	}

	result, err := e.dedupBatch(ctx, t, batchID, dryRun)
	if err != nil {
		return result, err
	}
	if !dryRun && result.Deleted > 0 {
		result.Settle = e.settle(ctx, result.orders.Sorted(), result.raws.Sorted())
	}
	return result, nil
}

func (e *Engine) dedupBatch(ctx context.Context, t itemTable, batchID uint, dryRun bool) (DedupResult, error) {
	result := DedupResult{
		Kind:    t.kind,
		BatchID: batchID,
		DryRun:  dryRun,
		orders:  utils.NewStringSet(),
		raws:    utils.NewStringSet(),
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Table(t.batches).Where("id = ? AND deleted_at IS NULL", batchID).Count(&exists).Error; err != nil {
			return fmt.Errorf("failed to load batch: %w", err)
		}
		if exists == 0 {
			return ErrBatchNotFound
		}

		var rows []dedupRow
		err := tx.Table(t.items).
			Select(t.dedupColumns()).
			Where(t.fk+" = ?", batchID).
			Order("created_at ASC, id ASC").
			Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("failed to load batch items: %w", err)
		}

		seen := make(map[dedupKey]int, len(rows))
		var doomed []uint
		for _, r := range rows {
			k := t.keyOf(r)
			seen[k]++
			if seen[k] == 1 {
				continue
			}
			if seen[k] == 2 {
				result.Groups++
			}
			doomed = append(doomed, r.ID)
			if r.MatchStatus == models.MatchMatched {
				result.orders.Add(r.MatchedOrderNumber)
			}
			result.raws.Add(r.OrderNumber)
		}
		result.Duplicates = len(doomed)

		if dryRun || len(doomed) == 0 {
			return nil
		}

		for start := 0; start < len(doomed); start += e.cfg.ChunkSize {
			end := min(start+e.cfg.ChunkSize, len(doomed))
			res := tx.Table(t.items).Where("id IN ?", doomed[start:end]).Delete(nil)
			if res.Error != nil {
				return fmt.Errorf("failed to delete duplicates: %w", res.Error)
			}
			result.Deleted += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	if result.Duplicates > 0 {
		e.logger.Info("Duplicate line items found",
			zap.String("kind", string(t.kind)),
			zap.Uint("batch_id", batchID),
			zap.Int("groups", result.Groups),
			zap.Int("duplicates", result.Duplicates),
			zap.Bool("dry_run", dryRun),
		)
	}
	return result, nil
}

// DedupAllResult aggregates a sweep over every live batch of a kind.
type DedupAllResult struct {
	Kind       models.ItemKind `json:"kind"`
	Summary    sweep.Summary   `json:"summary"`
	Batches    int             `json:"batches"`
	Duplicates int             `json:"duplicates"`
	Deleted    int             `json:"deleted"`
	Settle     SettleReport    `json:"settle"`
}

// DedupAll runs DedupBatch over every live batch of kind in keyset chunks.
func (e *Engine) DedupAll(ctx context.Context, kind models.ItemKind, dryRun bool) (DedupAllResult, error) {
	t, err := tableFor(kind)
	if err != nil {
		return DedupAllResult{}, err
	}
	out := DedupAllResult{Kind: kind}

	summary, err := sweep.RunChunks(ctx, "dedup:"+t.items, e.cfg.ChunkSize, e.logger,
		func(ctx context.Context, cursor uint, limit int) (sweep.Chunk, error) {
			var ids []uint
			err := e.db.WithContext(ctx).Table(t.batches).
				Where("id > ? AND deleted_at IS NULL", cursor).
				Order("id ASC").
				Limit(limit).
				Pluck("id", &ids).Error
			if err != nil {
				return sweep.Chunk{Cursor: cursor}, err
			}
			if len(ids) == 0 {
				return sweep.Chunk{Cursor: cursor}, nil
			}
			chunk := sweep.Chunk{Cursor: ids[len(ids)-1], Loaded: len(ids)}

			var failed error
			for _, id := range ids {
				r, err := e.DedupBatch(ctx, kind, id, dryRun)
				if err != nil {
					if !errors.Is(err, ErrBatchNotFound) {
						failed = errors.Join(failed, fmt.Errorf("batch %d: %w", id, err))
					}
					continue
				}
				out.Batches++
				out.Duplicates += r.Duplicates
				out.Deleted += r.Deleted
				out.Settle.add(r.Settle)
			}
			return chunk, failed
		})
	out.Summary = summary
	return out, err
}
