package reconcile

import (
	"context"
	"fmt"
	"strings"

	"glass-tracker/core/ordernumber"
	sweep "glass-tracker/core/reconcile"
	"glass-tracker/core/utils"
	"glass-tracker/feature/glass/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RematchResult reports one rematch sweep.
type RematchResult struct {
	Summary sweep.Summary `json:"summary"`
	Match   MatchReport   `json:"match"`
	Settle  SettleReport  `json:"settle"`
	// Released counts matched items returned to pending because their order is gone.
	Released int `json:"released"`
	// Shared is set when the caller joined a sweep started by someone else.
	Shared bool `json:"shared"`
}

// rematchScope narrows the backlog. The zero value means everything.
type rematchScope struct {
	exact    []string
	prefixes []string
}

func (s rematchScope) empty() bool {
	return len(s.exact) == 0 && len(s.prefixes) == 0
}

func (s rematchScope) key() string {
	if s.empty() {
		return "rematch:all"
	}
	return "rematch:" + strings.Join(s.exact, ",") + "|" + strings.Join(s.prefixes, ",")
}

// apply restricts q to raw order numbers in scope.
func (s rematchScope) apply(q *gorm.DB, column string) *gorm.DB {
	if s.empty() {
		return q
	}
	var (
		conds []string
		args  []any
	)
	if len(s.exact) > 0 {
		conds = append(conds, column+" IN ?")
		args = append(args, s.exact)
	}
	for _, p := range s.prefixes {
		conds = append(conds, column+" LIKE ?")
		args = append(args, p+"%")
	}
	return q.Where("("+strings.Join(conds, " OR ")+")", args...)
}

// scopeFor builds the backlog scope for a set of order numbers: raw strings sharing
// their base, plus the exact numbers for orders whose number does not parse.
func scopeFor(orderNumbers []string) rematchScope {
	exact := utils.NewStringSet()
	prefixes := utils.NewStringSet()
	for _, n := range orderNumbers {
		if p, err := ordernumber.Parse(n); err == nil {
			prefixes.Add(p.Base)
		} else {
			exact.Add(n)
		}
	}
	return rematchScope{exact: exact.Sorted(), prefixes: prefixes.Sorted()}
}

// Rematch re-drives the whole backlog: pending and unmatched items of both kinds,
// items matched to orders that are no longer live, and every open
// missing_production_order validation. Concurrent calls share one run.
func (e *Engine) Rematch(ctx context.Context) (RematchResult, error) {
	return e.rematch(ctx, rematchScope{})
}

// TriggerForOrders re-drives the backlog for raw numbers sharing the bases of the
// given order numbers. It is called when orders are created, restored or deleted.
func (e *Engine) TriggerForOrders(ctx context.Context, orderNumbers []string) (RematchResult, error) {
	scope := scopeFor(orderNumbers)
	if scope.empty() {
		return RematchResult{Match: newMatchReport()}, nil
	}
	return e.rematch(ctx, scope)
}

func (e *Engine) rematch(ctx context.Context, scope rematchScope) (RematchResult, error) {
	result, shared, err := e.coalescer.Do(ctx, scope.key(), func(ctx context.Context, acc *RematchResult) error {
		if acc.Match.Orders == nil {
			acc.Match = newMatchReport()
		}
		s, err := e.runRematch(ctx, scope, acc)
		acc.Summary.Name = s.Name
		acc.Summary.Merge(s)
		return err
	})
	result.Shared = shared
	return result, err
}

// runRematch performs one pass. Each chunk matches, recomputes and refreshes on its
// own, so a cancelled sweep leaves every finished chunk settled.
func (e *Engine) runRematch(ctx context.Context, scope rematchScope, result *RematchResult) (sweep.Summary, error) {
	total := sweep.Summary{Name: scope.key()}

	if ctx.Err() == nil {
		released, err := e.releaseOrphans(ctx, scope)
		result.Released += released
		if err != nil {
			total.Cancelled = ctx.Err() != nil
			return total, err
		}
	}

	for _, t := range itemTables {
		s, err := sweep.RunChunks(ctx, scope.key()+":"+t.items, e.cfg.ChunkSize, e.logger,
			func(ctx context.Context, cursor uint, limit int) (sweep.Chunk, error) {
				var items []itemRow
				q := e.db.WithContext(ctx).Table(t.items).
					Select(t.selectRow()).
					Where("id > ? AND match_status IN ?", cursor, []models.MatchStatus{models.MatchPending, models.MatchUnmatched})
				err := scope.apply(q, "order_number").
					Order("id ASC").
					Limit(limit).
					Scan(&items).Error
				if err != nil {
					return sweep.Chunk{Cursor: cursor}, fmt.Errorf("failed to load backlog: %w", err)
				}
				if len(items) == 0 {
					return sweep.Chunk{Cursor: cursor}, nil
				}
				chunk := sweep.Chunk{Cursor: items[len(items)-1].ID, Loaded: len(items)}

				report, err := e.matchItems(ctx, t, items)
				result.Match.merge(report)
				if err != nil {
					return chunk, err
				}
				result.Settle.add(e.settle(ctx, report.Orders.Sorted(), report.Raws.Sorted()))
				return chunk, nil
			})
		total.Merge(s)
		if err != nil {
			return total, err
		}
	}

	s, err := sweep.RunChunks(ctx, scope.key()+":validations", e.cfg.ChunkSize, e.logger,
		func(ctx context.Context, cursor uint, limit int) (sweep.Chunk, error) {
			var rows []models.GlassOrderValidation
			q := e.db.WithContext(ctx).
				Select("id", "order_number").
				Where("id > ? AND validation_type = ? AND resolved = ?", cursor, models.ValidationMissingOrder, false)
			err := scope.apply(q, "order_number").
				Order("id ASC").
				Limit(limit).
				Find(&rows).Error
			if err != nil {
				return sweep.Chunk{Cursor: cursor}, fmt.Errorf("failed to load open validations: %w", err)
			}
			if len(rows) == 0 {
				return sweep.Chunk{Cursor: cursor}, nil
			}

			raws := make([]string, 0, len(rows))
			for _, v := range rows {
				raws = append(raws, v.OrderNumber)
			}
			result.Settle.add(e.settle(ctx, nil, raws))
			return sweep.Chunk{Cursor: rows[len(rows)-1].ID, Loaded: len(rows)}, nil
		})
	total.Merge(s)

	if result.Match.Matched > 0 || result.Released > 0 || result.Settle.RecomputeFailed > 0 {
		e.logger.Info("Rematch sweep finished",
			zap.String("scope", scope.key()),
			zap.Int("matched", result.Match.Matched),
			zap.Int("conflict", result.Match.Conflict),
			zap.Int("unmatched", result.Match.Unmatched),
			zap.Int("released", result.Released),
			zap.Int("recomputed", result.Settle.Recomputed),
			zap.Int("recompute_failed", result.Settle.RecomputeFailed),
		)
	}
	return total, err
}
