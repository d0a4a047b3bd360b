package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"glass-tracker/core/ordernumber"
	sweep "glass-tracker/core/reconcile"
	"glass-tracker/core/utils"
	"glass-tracker/feature/glass/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GlassOrderItemInput is one supplier glass-order line as produced by an importer.
type GlassOrderItemInput struct {
	OrderNumber string `json:"order_number"`
	Position    string `json:"position"`
	WidthMm     int    `json:"width_mm"`
	HeightMm    int    `json:"height_mm"`
	Composition string `json:"composition"`
	Quantity    int    `json:"quantity"`
}

// GlassOrderBatchInput is one imported supplier glass-order document.
type GlassOrderBatchInput struct {
	SourceRef string                `json:"source_ref"`
	Supplier  string                `json:"supplier"`
	OrderedAt *time.Time            `json:"ordered_at,omitempty"`
	Items     []GlassOrderItemInput `json:"items"`
}

// DeliveryItemInput is one delivered pane line as produced by an importer.
type DeliveryItemInput struct {
	OrderNumber string `json:"order_number"`
	Position    string `json:"position"`
	WidthMm     int    `json:"width_mm"`
	HeightMm    int    `json:"height_mm"`
	Quantity    int    `json:"quantity"`
}

// DeliveryBatchInput is one imported delivery (rack) document.
type DeliveryBatchInput struct {
	SourceRef   string              `json:"source_ref"`
	RackNumber  string              `json:"rack_number"`
	DeliveredAt *time.Time          `json:"delivered_at,omitempty"`
	Items       []DeliveryItemInput `json:"items"`
}

// IngestResult reports one batch import.
type IngestResult struct {
	Kind              models.ItemKind `json:"kind"`
	BatchID           uint            `json:"batch_id"`
	Created           bool            `json:"created"`
	Inserted          int             `json:"inserted"`
	DuplicatesRemoved int             `json:"duplicates_removed"`
	Matched           int             `json:"matched"`
	Conflict          int             `json:"conflict"`
	Unmatched         int             `json:"unmatched"`
	Orders            []string        `json:"orders"`
	Settle            SettleReport    `json:"settle"`
}

// DeleteResult reports one batch deletion.
type DeleteResult struct {
	Kind         models.ItemKind `json:"kind"`
	BatchID      uint            `json:"batch_id"`
	ItemsDeleted int             `json:"items_deleted"`
	Orders       []string        `json:"orders"`
	Settle       SettleReport    `json:"settle"`
}

func validateQuantities(sourceRef string, quantities []int) error {
	if strings.TrimSpace(sourceRef) == "" {
		return fmt.Errorf("%w: source_ref is required", ErrInvalidFact)
	}
	for i, q := range quantities {
		if q <= 0 {
			return fmt.Errorf("%w: item %d has quantity %d", ErrInvalidFact, i, q)
		}
	}
	return nil
}

// IngestGlassOrderBatch stores a supplier glass-order batch and runs it through the chain.
func (e *Engine) IngestGlassOrderBatch(ctx context.Context, in GlassOrderBatchInput) (IngestResult, error) {
	quantities := make([]int, len(in.Items))
	rows := make([]models.GlassOrderItem, len(in.Items))
	for i, it := range in.Items {
		quantities[i] = it.Quantity
		rows[i] = models.GlassOrderItem{
			OrderNumber: strings.TrimSpace(it.OrderNumber),
			Position:    it.Position,
			WidthMm:     it.WidthMm,
			HeightMm:    it.HeightMm,
			Composition: it.Composition,
			Quantity:    it.Quantity,
			MatchStatus: models.MatchPending,
		}
	}
	if err := validateQuantities(in.SourceRef, quantities); err != nil {
		return IngestResult{}, err
	}

	batch := models.GlassOrder{SourceRef: strings.TrimSpace(in.SourceRef), Supplier: in.Supplier, OrderedAt: in.OrderedAt}
	created, err := e.storeBatch(ctx, &batch, batch.SourceRef, func(tx *gorm.DB) error {
		for i := range rows {
			rows[i].GlassOrderID = batch.ID
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, 200).Error
	})
	if err != nil {
		return IngestResult{}, err
	}

	return e.afterIngest(ctx, orderItems, batch.ID, created, len(rows))
}

// IngestDeliveryBatch stores a delivery batch and runs it through the chain.
func (e *Engine) IngestDeliveryBatch(ctx context.Context, in DeliveryBatchInput) (IngestResult, error) {
	quantities := make([]int, len(in.Items))
	rows := make([]models.GlassDeliveryItem, len(in.Items))
	for i, it := range in.Items {
		quantities[i] = it.Quantity
		rows[i] = models.GlassDeliveryItem{
			OrderNumber: strings.TrimSpace(it.OrderNumber),
			Position:    it.Position,
			WidthMm:     it.WidthMm,
			HeightMm:    it.HeightMm,
			Quantity:    it.Quantity,
			MatchStatus: models.MatchPending,
		}
	}
	if err := validateQuantities(in.SourceRef, quantities); err != nil {
		return IngestResult{}, err
	}

	batch := models.GlassDelivery{SourceRef: strings.TrimSpace(in.SourceRef), RackNumber: in.RackNumber, DeliveredAt: in.DeliveredAt}
	created, err := e.storeBatch(ctx, &batch, batch.SourceRef, func(tx *gorm.DB) error {
		for i := range rows {
			rows[i].GlassDeliveryID = batch.ID
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, 200).Error
	})
	if err != nil {
		return IngestResult{}, err
	}

	return e.afterIngest(ctx, deliveryItems, batch.ID, created, len(rows))
}

// storeBatch finds the batch by source ref (restoring it if soft-deleted) or creates
// it, then inserts the items in the same transaction. batch must point to a model
// with ID, SourceRef and DeletedAt.
func (e *Engine) storeBatch(ctx context.Context, batch any, sourceRef string, insert func(tx *gorm.DB) error) (bool, error) {
	created := false
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Where("source_ref = ?", sourceRef).Limit(1).Find(batch)
		if res.Error != nil {
			return fmt.Errorf("failed to look up batch: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			if err := tx.Create(batch).Error; err != nil {
				return fmt.Errorf("failed to create batch: %w", err)
			}
			created = true
		} else if err := tx.Unscoped().Model(batch).Update("deleted_at", nil).Error; err != nil {
			return fmt.Errorf("failed to restore batch: %w", err)
		}
		if err := insert(tx); err != nil {
			return fmt.Errorf("failed to insert items: %w", err)
		}
		return nil
	})
	return created, err
}

// afterIngest dedups the batch, matches its pending items and settles what changed.
func (e *Engine) afterIngest(ctx context.Context, t itemTable, batchID uint, created bool, inserted int) (IngestResult, error) {
	result := IngestResult{Kind: t.kind, BatchID: batchID, Created: created, Inserted: inserted}
	log := e.logger.With(zap.String("kind", string(t.kind)), zap.Uint("batch_id", batchID))

	dedup, err := e.dedupBatch(ctx, t, batchID, false)
	if err != nil {
		return result, err
	}
	result.DuplicatesRemoved = dedup.Deleted

	orders := utils.NewStringSet()
	orders.Merge(dedup.orders)
	raws := utils.NewStringSet()
	raws.Merge(dedup.raws)

	_, err = sweep.RunChunks(ctx, fmt.Sprintf("ingest:%s:%d", t.items, batchID), e.cfg.ChunkSize, log,
		func(ctx context.Context, cursor uint, limit int) (sweep.Chunk, error) {
			var items []itemRow
			err := e.db.WithContext(ctx).Table(t.items).
				Select(t.selectRow()).
				Where(t.fk+" = ? AND id > ? AND match_status = ?", batchID, cursor, models.MatchPending).
				Order("id ASC").
				Limit(limit).
				Scan(&items).Error
			if err != nil {
				return sweep.Chunk{Cursor: cursor}, err
			}
			if len(items) == 0 {
				return sweep.Chunk{Cursor: cursor}, nil
			}
			report, err := e.matchItems(ctx, t, items)
			result.Matched += report.Matched
			result.Conflict += report.Conflict
			result.Unmatched += report.Unmatched
			orders.Merge(report.Orders)
			raws.Merge(report.Raws)
			return sweep.Chunk{Cursor: items[len(items)-1].ID, Loaded: len(items)}, err
		})
	if err != nil {
		return result, err
	}

	result.Orders = orders.Sorted()
	result.Settle = e.settle(ctx, result.Orders, raws.Sorted())

	log.Info("Batch ingested",
		zap.Bool("created", created),
		zap.Int("inserted", inserted),
		zap.Int("duplicates_removed", result.DuplicatesRemoved),
		zap.Int("matched", result.Matched),
		zap.Int("conflict", result.Conflict),
		zap.Int("unmatched", result.Unmatched),
	)
	return result, nil
}

// DeleteGlassOrderBatch soft-deletes a glass-order batch and removes its items.
func (e *Engine) DeleteGlassOrderBatch(ctx context.Context, id uint) (DeleteResult, error) {
	return e.deleteBatch(ctx, orderItems, &models.GlassOrder{}, id)
}

// DeleteDeliveryBatch soft-deletes a delivery batch and removes its items.
func (e *Engine) DeleteDeliveryBatch(ctx context.Context, id uint) (DeleteResult, error) {
	return e.deleteBatch(ctx, deliveryItems, &models.GlassDelivery{}, id)
}

// deleteBatch collects every order number and raw string the batch's items touched,
// deletes the items, soft-deletes the batch, then recomputes and refreshes them.
func (e *Engine) deleteBatch(ctx context.Context, t itemTable, batch any, id uint) (DeleteResult, error) {
	result := DeleteResult{Kind: t.kind, BatchID: id}
	orders := utils.NewStringSet()
	raws := utils.NewStringSet()

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(batch, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBatchNotFound
			}
			return fmt.Errorf("failed to load batch: %w", err)
		}

		var touched []itemRow
		err := tx.Table(t.items).
			Select("DISTINCT order_number, match_status, matched_order_number").
			Where(t.fk+" = ?", id).
			Scan(&touched).Error
		if err != nil {
			return fmt.Errorf("failed to collect affected orders: %w", err)
		}
		for _, it := range touched {
			if it.MatchStatus == models.MatchMatched {
				orders.Add(it.MatchedOrderNumber)
			}
			if it.MatchStatus == models.MatchUnmatched {
				raws.Add(it.OrderNumber)
			}
		}

		res := tx.Table(t.items).Where(t.fk+" = ?", id).Delete(nil)
		if res.Error != nil {
			return fmt.Errorf("failed to delete items: %w", res.Error)
		}
		result.ItemsDeleted = int(res.RowsAffected)

		if err := tx.Delete(batch).Error; err != nil {
			return fmt.Errorf("failed to delete batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	result.Orders = orders.Sorted()
	result.Settle = e.settle(ctx, result.Orders, raws.Sorted())

	e.logger.Info("Batch deleted",
		zap.String("kind", string(t.kind)),
		zap.Uint("batch_id", id),
		zap.Int("items_deleted", result.ItemsDeleted),
		zap.Strings("orders", result.Orders),
	)
	return result, nil
}

// UpsertOrder creates an order, or restores a soft-deleted one, and re-drives the
// backlog for its base. Upserting a live order only re-drives.
func (e *Engine) UpsertOrder(ctx context.Context, orderNumber string) (models.Order, bool, error) {
	number := strings.TrimSpace(orderNumber)
	if number == "" {
		return models.Order{}, false, fmt.Errorf("%w: order number is required", ErrInvalidFact)
	}

	var base, suffix string
	if p, err := ordernumber.Parse(number); err == nil {
		base, suffix = p.Base, p.Suffix
	}

	var order models.Order
	created := false
	err := e.withLock(ctx, orderLockKey(number), func() error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Unscoped().Where("order_number = ?", number).Limit(1).Find(&order)
			if res.Error != nil {
				return fmt.Errorf("failed to look up order: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				order = models.Order{
					OrderNumber:       number,
					OrderNumberBase:   base,
					OrderNumberSuffix: suffix,
					GlassOrderStatus:  models.StatusNotOrdered,
				}
				created = true
				return tx.Create(&order).Error
			}
			if order.DeletedAt.Valid {
				created = true
				order.DeletedAt = gorm.DeletedAt{}
				return tx.Unscoped().Model(&order).Updates(map[string]any{
					"deleted_at":          nil,
					"order_number_base":   base,
					"order_number_suffix": suffix,
				}).Error
			}
			return nil
		})
	})
	if err != nil {
		return models.Order{}, false, fmt.Errorf("upsert order %s: %w", number, err)
	}

	if created {
		e.logger.Info("Order registered", zap.String("order_number", number))
	}
	if _, err := e.TriggerForOrders(ctx, []string{number}); err != nil {
		return order, created, fmt.Errorf("rematch after upsert of %s: %w", number, err)
	}
	if _, err := e.Recompute(ctx, number); err != nil {
		return order, created, err
	}
	if err := e.db.WithContext(ctx).Where("order_number = ?", number).First(&order).Error; err != nil {
		return order, created, fmt.Errorf("failed to reload order: %w", err)
	}
	return order, created, nil
}

// DeleteOrder soft-deletes an order. Items attributed to it, or listing it as a
// conflict candidate, go back to pending and are re-matched; its open quantity
// validations are resolved.
func (e *Engine) DeleteOrder(ctx context.Context, orderNumber string) (RematchResult, error) {
	err := e.withLock(ctx, orderLockKey(orderNumber), func() error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var order models.Order
			if err := tx.Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrOrderNotFound
				}
				return fmt.Errorf("failed to load order: %w", err)
			}

			reset := map[string]any{
				"match_status":         models.MatchPending,
				"matched_order_number": "",
				"match_reason":         "",
				"conflict_candidates":  "",
				"updated_at":           e.now(),
			}
			for _, t := range itemTables {
				err := tx.Table(t.items).
					Where("match_status = ? AND matched_order_number = ?", models.MatchMatched, orderNumber).
					Updates(reset).Error
				if err != nil {
					return fmt.Errorf("failed to release %s: %w", t.items, err)
				}

				var conflicted []itemRow
				err = tx.Table(t.items).
					Select(t.selectRow()).
					Where("match_status = ? AND conflict_candidates LIKE ?", models.MatchConflict, "%"+orderNumber+"%").
					Scan(&conflicted).Error
				if err != nil {
					return fmt.Errorf("failed to load conflicts in %s: %w", t.items, err)
				}
				var ids []uint
				for _, it := range conflicted {
					if utils.NewStringSet(utils.SplitList(it.ConflictCandidates)...).Has(orderNumber) {
						ids = append(ids, it.ID)
					}
				}
				if len(ids) > 0 {
					if err := tx.Table(t.items).Where("id IN ?", ids).Updates(reset).Error; err != nil {
						return fmt.Errorf("failed to release conflicts in %s: %w", t.items, err)
					}
				}
			}

			err := tx.Model(&order).Updates(map[string]any{
				"ordered_glass_count":   0,
				"delivered_glass_count": 0,
				"glass_order_status":    models.StatusNotOrdered,
			}).Error
			if err != nil {
				return fmt.Errorf("failed to reset order: %w", err)
			}
			if err := e.resolveOpen(tx, orderNumber, ResolvedByRecompute, models.ValidationSurplus, models.ValidationShortage); err != nil {
				return err
			}
			return tx.Delete(&order).Error
		})
	})
	if err != nil {
		return RematchResult{}, err
	}

	e.logger.Info("Order deleted", zap.String("order_number", orderNumber))
	return e.TriggerForOrders(ctx, []string{orderNumber})
}
