package reconcile

import (
	"context"
	"errors"
	"fmt"

	sweep "glass-tracker/core/reconcile"
	"glass-tracker/feature/glass/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecomputeResult is the derived state of one order after a recompute.
type RecomputeResult struct {
	OrderNumber string                  `json:"order_number"`
	Found       bool                    `json:"found"`
	Changed     bool                    `json:"changed"`
	Ordered     int                     `json:"ordered_glass_count"`
	Delivered   int                     `json:"delivered_glass_count"`
	Status      models.GlassOrderStatus `json:"glass_order_status"`
}

// Recompute rederives an order's counters and status from its matched items and
// updates the discrepancy ledger in the same transaction. A missing or deleted order
// is a no-op with Found=false.
func (e *Engine) Recompute(ctx context.Context, orderNumber string) (RecomputeResult, error) {
	result := RecomputeResult{OrderNumber: orderNumber}

	err := e.withLock(ctx, orderLockKey(orderNumber), func() error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var order models.Order
			if err := tx.Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil
				}
				return fmt.Errorf("failed to load order: %w", err)
			}
			result.Found = true

			ordered, err := sumItems(tx, orderItems, models.MatchMatched, "matched_order_number", orderNumber)
			if err != nil {
				return err
			}
			delivered, err := sumItems(tx, deliveryItems, models.MatchMatched, "matched_order_number", orderNumber)
			if err != nil {
				return err
			}
			if ordered < 0 || delivered < 0 {
				return &ConsistencyError{OrderNumber: orderNumber, Ordered: ordered, Delivered: delivered}
			}

			status := DeriveStatus(ordered, delivered)
			result.Ordered, result.Delivered, result.Status = ordered, delivered, status

			updates := map[string]any{}
			if order.OrderedGlassCount != ordered {
				updates["ordered_glass_count"] = ordered
			}
			if order.DeliveredGlassCount != delivered {
				updates["delivered_glass_count"] = delivered
			}
			if order.GlassOrderStatus != status {
				updates["glass_order_status"] = status
			}
			if order.GlassDeliveryDate == nil && (status == models.StatusDelivered || status == models.StatusOverDelivered) {
				updates["glass_delivery_date"] = e.now()
			}
			if len(updates) > 0 {
				if err := tx.Model(&order).Updates(updates).Error; err != nil {
					return fmt.Errorf("failed to update order: %w", err)
				}
				result.Changed = true
			}

			return e.applyQuantityLedger(tx, orderNumber, ordered, delivered)
		})
	})

	var ce *ConsistencyError
	if errors.As(err, &ce) {
		e.logger.Error("Refusing to write inconsistent order counters",
			zap.String("order_number", orderNumber),
			zap.Int("ordered", ce.Ordered),
			zap.Int("delivered", ce.Delivered),
		)
		return RecomputeResult{OrderNumber: orderNumber, Found: true}, err
	}
	if err != nil {
		return RecomputeResult{OrderNumber: orderNumber}, fmt.Errorf("recompute %s: %w", orderNumber, err)
	}

	if result.Changed {
		e.logger.Debug("Order recomputed",
			zap.String("order_number", orderNumber),
			zap.Int("ordered", result.Ordered),
			zap.Int("delivered", result.Delivered),
			zap.String("status", string(result.Status)),
		)
	}
	return result, nil
}

// RecomputeMany recomputes distinct order numbers on the worker pool. Failures are
// logged per order and never stop the others.
func (e *Engine) RecomputeMany(ctx context.Context, orderNumbers []string) sweep.KeyReport {
	report := sweep.ForEachKey(ctx, orderNumbers, e.cfg.Workers, func(ctx context.Context, n string) error {
		_, err := e.Recompute(ctx, n)
		return err
	})
	for _, key := range report.FailedKeys() {
		e.logger.Warn("Recompute failed", zap.String("order_number", key), zap.Error(report.Failed[key]))
	}
	return report
}

// sumItems totals quantities of items in status whose column equals value, ignoring
// items of soft-deleted batches.
func sumItems(tx *gorm.DB, t itemTable, status models.MatchStatus, column, value string) (int, error) {
	var total int64
	err := tx.Table(t.items+" AS i").
		Joins("JOIN "+t.batches+" AS b ON b.id = i."+t.fk).
		Where("b.deleted_at IS NULL").
		Where("i.match_status = ? AND i."+column+" = ?", status, value).
		Select("COALESCE(SUM(i.quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum %s: %w", t.items, err)
	}
	return int(total), nil
}
