package reconcile

import (
	"context"
	"fmt"

	"glass-tracker/feature/glass/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// liveOrderExists guards a match write: the target order must not be deleted.
const liveOrderExists = "EXISTS (SELECT 1 FROM orders WHERE orders.order_number = ? AND orders.deleted_at IS NULL)"

func orphanedItems(q *gorm.DB, t itemTable) *gorm.DB {
	return q.Table(t.items).
		Where(t.items+".match_status = ?", models.MatchMatched).
		Where("NOT EXISTS (SELECT 1 FROM orders WHERE orders.order_number = " + t.items + ".matched_order_number AND orders.deleted_at IS NULL)")
}

// countOrphans counts matched items whose order is deleted or never existed.
func (e *Engine) countOrphans(ctx context.Context) (int, error) {
	total := 0
	for _, t := range itemTables {
		var n int64
		if err := orphanedItems(e.db.WithContext(ctx), t).Count(&n).Error; err != nil {
			return total, fmt.Errorf("failed to count orphaned %s: %w", t.items, err)
		}
		total += int(n)
	}
	return total, nil
}

// releaseOrphans returns matched items whose order is no longer live to pending, so
// the sweep that follows re-matches them or records them as missing.
func (e *Engine) releaseOrphans(ctx context.Context, scope rematchScope) (int, error) {
	released := 0
	for _, t := range itemTables {
		q := scope.apply(orphanedItems(e.db.WithContext(ctx), t), t.items+".order_number")
		res := q.Updates(map[string]any{
			"match_status":         models.MatchPending,
			"matched_order_number": "",
			"match_reason":         "",
			"conflict_candidates":  "",
			"updated_at":           e.now(),
		})
		if res.Error != nil {
			return released, fmt.Errorf("failed to release orphaned %s: %w", t.items, res.Error)
		}
		released += int(res.RowsAffected)
	}
	if released > 0 {
		e.logger.Warn("Released items matched to deleted orders",
			zap.String("scope", scope.key()),
			zap.Int("released", released),
		)
	}
	return released, nil
}
