package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"glass-tracker/feature/glass/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// applyQuantityLedger opens, updates or resolves the surplus and shortage validations
// of an order. It runs inside the recompute transaction.
func (e *Engine) applyQuantityLedger(tx *gorm.DB, orderNumber string, ordered, delivered int) error {
	switch {
	case ordered > 0 && delivered > ordered:
		if err := e.upsertValidation(tx, models.GlassOrderValidation{
			OrderNumber:       orderNumber,
			ValidationType:    models.ValidationSurplus,
			Severity:          models.SeverityWarning,
			OrderedQuantity:   ordered,
			DeliveredQuantity: delivered,
			ExpectedQuantity:  ordered,
			Message:           fmt.Sprintf("%d panes delivered for order %s, %d ordered (%d surplus)", delivered, orderNumber, ordered, delivered-ordered),
		}); err != nil {
			return err
		}
		return e.resolveOpen(tx, orderNumber, ResolvedByRecompute, models.ValidationShortage)

	case delivered > 0 && delivered < ordered:
		if err := e.upsertValidation(tx, models.GlassOrderValidation{
			OrderNumber:       orderNumber,
			ValidationType:    models.ValidationShortage,
			Severity:          models.SeverityWarning,
			OrderedQuantity:   ordered,
			DeliveredQuantity: delivered,
			ExpectedQuantity:  ordered,
			Message:           fmt.Sprintf("%d of %d panes delivered for order %s (%d outstanding)", delivered, ordered, orderNumber, ordered-delivered),
		}); err != nil {
			return err
		}
		return e.resolveOpen(tx, orderNumber, ResolvedByRecompute, models.ValidationSurplus)

	default:
		return e.resolveOpen(tx, orderNumber, ResolvedByRecompute, models.ValidationSurplus, models.ValidationShortage)
	}
}

// upsertValidation updates the open validation for (OrderNumber, ValidationType) in
// place or creates one. Callers hold the lock that owns the pair.
func (e *Engine) upsertValidation(tx *gorm.DB, v models.GlassOrderValidation) error {
	var existing models.GlassOrderValidation
	err := tx.Where("order_number = ? AND validation_type = ? AND resolved = ?", v.OrderNumber, v.ValidationType, false).
		Order("id").
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := tx.Create(&v).Error; err != nil {
			return fmt.Errorf("failed to open %s validation: %w", v.ValidationType, err)
		}
		e.logger.Info("Validation opened",
			zap.String("order_number", v.OrderNumber),
			zap.String("type", string(v.ValidationType)),
			zap.String("message", v.Message),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load validation: %w", err)
	}

	if existing.Severity == v.Severity &&
		existing.OrderedQuantity == v.OrderedQuantity &&
		existing.DeliveredQuantity == v.DeliveredQuantity &&
		existing.ExpectedQuantity == v.ExpectedQuantity &&
		existing.Message == v.Message {
		return nil
	}

	err = tx.Model(&existing).Updates(map[string]any{
		"severity":           v.Severity,
		"ordered_quantity":   v.OrderedQuantity,
		"delivered_quantity": v.DeliveredQuantity,
		"expected_quantity":  v.ExpectedQuantity,
		"message":            v.Message,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update validation %d: %w", existing.ID, err)
	}
	return nil
}

// resolveOpen marks every open validation of the given types as resolved.
func (e *Engine) resolveOpen(tx *gorm.DB, orderNumber, by string, types ...models.ValidationType) error {
	res := tx.Model(&models.GlassOrderValidation{}).
		Where("order_number = ? AND validation_type IN ? AND resolved = ?", orderNumber, types, false).
		Updates(map[string]any{
			"resolved":    true,
			"resolved_at": e.now(),
			"resolved_by": by,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to resolve validations for %s: %w", orderNumber, res.Error)
	}
	if res.RowsAffected > 0 {
		e.logger.Info("Validations resolved",
			zap.String("order_number", orderNumber),
			zap.String("resolved_by", by),
			zap.Int64("count", res.RowsAffected),
		)
	}
	return nil
}

// RefreshMissing rederives the missing_production_order validation for a raw order
// number from the items still unmatched under it. It opens or updates the validation
// while any remain and resolves it once none do.
func (e *Engine) RefreshMissing(ctx context.Context, raw string) error {
	return e.withLock(ctx, missingLockKey(raw), func() error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ordered, err := sumItems(tx, orderItems, models.MatchUnmatched, "order_number", raw)
			if err != nil {
				return err
			}
			delivered, err := sumItems(tx, deliveryItems, models.MatchUnmatched, "order_number", raw)
			if err != nil {
				return err
			}

			if ordered == 0 && delivered == 0 {
				return e.resolveOpen(tx, raw, ResolvedByRematch, models.ValidationMissingOrder)
			}

			return e.upsertValidation(tx, models.GlassOrderValidation{
				OrderNumber:       raw,
				ValidationType:    models.ValidationMissingOrder,
				Severity:          models.SeverityError,
				OrderedQuantity:   ordered,
				DeliveredQuantity: delivered,
				Message:           missingMessage(raw, ordered, delivered),
			})
		})
	})
}

func missingMessage(raw string, ordered, delivered int) string {
	var parts []string
	if ordered > 0 {
		parts = append(parts, fmt.Sprintf("%d ordered", ordered))
	}
	if delivered > 0 {
		parts = append(parts, fmt.Sprintf("%d delivered", delivered))
	}
	return fmt.Sprintf("no production order for %q (%s panes unmatched)", raw, strings.Join(parts, ", "))
}

// Resolve closes a validation on behalf of an operator. Resolving an already
// resolved validation returns it unchanged.
func (e *Engine) Resolve(ctx context.Context, id uint, actor, note string) (models.GlassOrderValidation, error) {
	var v models.GlassOrderValidation
	if actor == "" {
		return v, fmt.Errorf("%w: actor is required", ErrInvalidFact)
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&v, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrValidationNotFound
			}
			return fmt.Errorf("failed to load validation: %w", err)
		}
		if v.Resolved {
			return nil
		}

		now := e.now()
		updates := map[string]any{
			"resolved":    true,
			"resolved_at": now,
			"resolved_by": actor,
		}
		if note != "" {
			updates["message"] = v.Message + " | " + note
		}
		res := tx.Model(&v).Where("resolved = ?", false).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to resolve validation: %w", res.Error)
		}
		return tx.First(&v, id).Error
	})
	if err != nil {
		return models.GlassOrderValidation{}, err
	}

	e.logger.Info("Validation resolved manually",
		zap.Uint("validation_id", id),
		zap.String("order_number", v.OrderNumber),
		zap.String("actor", actor),
	)
	return v, nil
}
