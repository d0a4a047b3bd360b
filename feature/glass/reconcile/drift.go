package reconcile

import (
	"context"
	"fmt"
	"slices"

	sweep "glass-tracker/core/reconcile"
	"glass-tracker/feature/glass/models"

	"go.uber.org/zap"
)

// Drift is an order whose stored counters disagree with its matched items.
type Drift struct {
	OrderNumber       string                  `json:"order_number"`
	StoredOrdered     int                     `json:"stored_ordered"`
	StoredDelivered   int                     `json:"stored_delivered"`
	StoredStatus      models.GlassOrderStatus `json:"stored_status"`
	ExpectedOrdered   int                     `json:"expected_ordered"`
	ExpectedDelivered int                     `json:"expected_delivered"`
	ExpectedStatus    models.GlassOrderStatus `json:"expected_status"`
	Repaired          bool                    `json:"repaired"`
}

// DriftReport is the outcome of AuditDrift.
type DriftReport struct {
	Summary sweep.Summary `json:"summary"`
	Checked int           `json:"checked"`
	Drifted []Drift       `json:"drifted"`
	// Orphaned counts matched items whose order is no longer live. With fix they are
	// released and rematched.
	Orphaned int `json:"orphaned"`
}

// AuditDrift compares every live order's counters with the sums of its matched
// items, chunk by chunk. With fix set, drifted orders are recomputed.
func (e *Engine) AuditDrift(ctx context.Context, fix bool) (DriftReport, error) {
	report := DriftReport{Drifted: []Drift{}}

	summary, err := sweep.RunChunks(ctx, "audit:drift", e.cfg.ChunkSize, e.logger,
		func(ctx context.Context, cursor uint, limit int) (sweep.Chunk, error) {
			var orders []models.Order
			err := e.db.WithContext(ctx).
				Where("id > ?", cursor).
				Order("id ASC").
				Limit(limit).
				Find(&orders).Error
			if err != nil {
				return sweep.Chunk{Cursor: cursor}, fmt.Errorf("failed to load orders: %w", err)
			}
			if len(orders) == 0 {
				return sweep.Chunk{Cursor: cursor}, nil
			}
			chunk := sweep.Chunk{Cursor: orders[len(orders)-1].ID, Loaded: len(orders)}

			numbers := make([]string, len(orders))
			for i, o := range orders {
				numbers[i] = o.OrderNumber
			}
			ordered, err := e.sumByOrder(ctx, orderItems, numbers)
			if err != nil {
				return chunk, err
			}
			delivered, err := e.sumByOrder(ctx, deliveryItems, numbers)
			if err != nil {
				return chunk, err
			}

			var toFix []string
			for _, o := range orders {
				report.Checked++
				want := DeriveStatus(ordered[o.OrderNumber], delivered[o.OrderNumber])
				if o.OrderedGlassCount == ordered[o.OrderNumber] &&
					o.DeliveredGlassCount == delivered[o.OrderNumber] &&
					o.GlassOrderStatus == want {
					continue
				}
				report.Drifted = append(report.Drifted, Drift{
					OrderNumber:       o.OrderNumber,
					StoredOrdered:     o.OrderedGlassCount,
					StoredDelivered:   o.DeliveredGlassCount,
					StoredStatus:      o.GlassOrderStatus,
					ExpectedOrdered:   ordered[o.OrderNumber],
					ExpectedDelivered: delivered[o.OrderNumber],
					ExpectedStatus:    want,
				})
				toFix = append(toFix, o.OrderNumber)
			}

			if fix && len(toFix) > 0 {
				r := e.RecomputeMany(ctx, toFix)
				for i := range report.Drifted {
					d := &report.Drifted[i]
					if _, failed := r.Failed[d.OrderNumber]; !failed && slices.Contains(toFix, d.OrderNumber) {
						d.Repaired = true
					}
				}
			}
			return chunk, nil
		})
	report.Summary = summary
	if err != nil {
		return report, err
	}

	report.Orphaned, err = e.countOrphans(ctx)
	if err != nil {
		return report, err
	}
	if fix && report.Orphaned > 0 {
		if _, err := e.Rematch(ctx); err != nil {
			return report, fmt.Errorf("failed to release orphaned items: %w", err)
		}
	}

	if len(report.Drifted) > 0 || report.Orphaned > 0 {
		e.logger.Warn("Order counters drifted from matched items",
			zap.Int("drifted", len(report.Drifted)),
			zap.Int("orphaned", report.Orphaned),
			zap.Bool("fix", fix),
		)
	}
	return report, err
}

func (e *Engine) sumByOrder(ctx context.Context, t itemTable, numbers []string) (map[string]int, error) {
	var rows []struct {
		MatchedOrderNumber string
		Total              int64
	}
	err := e.db.WithContext(ctx).Table(t.items+" AS i").
		Select("i.matched_order_number, COALESCE(SUM(i.quantity), 0) AS total").
		Joins("JOIN "+t.batches+" AS b ON b.id = i."+t.fk).
		Where("b.deleted_at IS NULL AND i.match_status = ? AND i.matched_order_number IN ?", models.MatchMatched, numbers).
		Group("i.matched_order_number").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum %s: %w", t.items, err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.MatchedOrderNumber] = int(r.Total)
	}
	return out, nil
}
