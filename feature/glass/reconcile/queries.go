package reconcile

import (
	"context"
	"errors"
	"fmt"

	"glass-tracker/feature/glass/models"

	"gorm.io/gorm"
)

// OrderView is an order with its open validations.
type OrderView struct {
	models.Order
	OpenValidations []models.GlassOrderValidation `json:"open_validations"`
}

// GetOrder returns a live order and the open validations recorded under its number.
func (e *Engine) GetOrder(ctx context.Context, orderNumber string) (OrderView, error) {
	var view OrderView
	db := e.db.WithContext(ctx)

	if err := db.Where("order_number = ?", orderNumber).First(&view.Order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return view, ErrOrderNotFound
		}
		return view, fmt.Errorf("failed to load order: %w", err)
	}
	err := db.Where("order_number = ? AND resolved = ?", orderNumber, false).
		Order("id ASC").
		Find(&view.OpenValidations).Error
	if err != nil {
		return view, fmt.Errorf("failed to load validations: %w", err)
	}
	return view, nil
}

// WorklistFilter narrows Worklist. Zero fields do not filter; Resolved defaults to open.
type WorklistFilter struct {
	Type        models.ValidationType
	Severity    models.Severity
	OrderNumber string
	Resolved    *bool
	Limit       int
	Offset      int
}

// Worklist lists validations, newest first.
func (e *Engine) Worklist(ctx context.Context, f WorklistFilter) ([]models.GlassOrderValidation, int64, error) {
	q := e.db.WithContext(ctx).Model(&models.GlassOrderValidation{})
	resolved := false
	if f.Resolved != nil {
		resolved = *f.Resolved
	}
	q = q.Where("resolved = ?", resolved)
	if f.Type != "" {
		q = q.Where("validation_type = ?", f.Type)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if f.OrderNumber != "" {
		q = q.Where("order_number = ?", f.OrderNumber)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count validations: %w", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var rows []models.GlassOrderValidation
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(f.Offset).Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list validations: %w", err)
	}
	return rows, total, nil
}

// Dashboard aggregates open validations, order statuses and the item backlog.
type Dashboard struct {
	OpenBySeverity map[models.Severity]int64         `json:"open_by_severity"`
	OpenByType     map[models.ValidationType]int64   `json:"open_by_type"`
	OrdersByStatus map[models.GlassOrderStatus]int64 `json:"orders_by_status"`
	Items          map[models.ItemKind]ItemBacklog   `json:"items"`
}

// ItemBacklog counts line items by match status for one kind.
type ItemBacklog struct {
	Pending   int64 `json:"pending"`
	Matched   int64 `json:"matched"`
	Conflict  int64 `json:"conflict"`
	Unmatched int64 `json:"unmatched"`
}

// Dashboard builds the triage overview.
func (e *Engine) Dashboard(ctx context.Context) (Dashboard, error) {
	d := Dashboard{
		OpenBySeverity: map[models.Severity]int64{},
		OpenByType:     map[models.ValidationType]int64{},
		OrdersByStatus: map[models.GlassOrderStatus]int64{},
		Items:          map[models.ItemKind]ItemBacklog{},
	}
	db := e.db.WithContext(ctx)

	var open []struct {
		Severity       models.Severity
		ValidationType models.ValidationType
		N              int64
	}
	err := db.Model(&models.GlassOrderValidation{}).
		Select("severity, validation_type, COUNT(*) AS n").
		Where("resolved = ?", false).
		Group("severity, validation_type").
		Scan(&open).Error
	if err != nil {
		return d, fmt.Errorf("failed to count validations: %w", err)
	}
	for _, r := range open {
		d.OpenBySeverity[r.Severity] += r.N
		d.OpenByType[r.ValidationType] += r.N
	}

	var statuses []struct {
		GlassOrderStatus models.GlassOrderStatus
		N                int64
	}
	err = db.Model(&models.Order{}).
		Select("glass_order_status, COUNT(*) AS n").
		Group("glass_order_status").
		Scan(&statuses).Error
	if err != nil {
		return d, fmt.Errorf("failed to count orders: %w", err)
	}
	for _, r := range statuses {
		d.OrdersByStatus[r.GlassOrderStatus] = r.N
	}

	for _, t := range itemTables {
		var rows []struct {
			MatchStatus models.MatchStatus
			N           int64
		}
		err := db.Table(t.items).
			Select("match_status, COUNT(*) AS n").
			Group("match_status").
			Scan(&rows).Error
		if err != nil {
			return d, fmt.Errorf("failed to count %s: %w", t.items, err)
		}
		var b ItemBacklog
		for _, r := range rows {
			switch r.MatchStatus {
			case models.MatchPending:
				b.Pending = r.N
			case models.MatchMatched:
				b.Matched = r.N
			case models.MatchConflict:
				b.Conflict = r.N
			case models.MatchUnmatched:
				b.Unmatched = r.N
			}
		}
		d.Items[t.kind] = b
	}
	return d, nil
}

// ItemView is a line item of either kind, as shown in conflict triage.
type ItemView struct {
	Kind               models.ItemKind    `json:"kind"`
	ID                 uint               `json:"id"`
	BatchID            uint               `json:"batch_id"`
	OrderNumber        string             `json:"order_number"`
	Position           string             `json:"position"`
	WidthMm            int                `json:"width_mm"`
	HeightMm           int                `json:"height_mm"`
	Quantity           int                `json:"quantity"`
	MatchStatus        models.MatchStatus `json:"match_status"`
	MatchedOrderNumber string             `json:"matched_order_number,omitempty"`
	MatchReason        string             `json:"match_reason,omitempty"`
	ConflictCandidates string             `json:"conflict_candidates,omitempty"`
}

// ListItems returns items of both kinds in the given status, oldest first.
func (e *Engine) ListItems(ctx context.Context, status models.MatchStatus, limit int) ([]ItemView, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown match status %q", ErrInvalidFact, status)
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var out []ItemView
	for _, t := range itemTables {
		var rows []ItemView
		err := e.db.WithContext(ctx).Table(t.items+" AS i").
			Select("i.id, i."+t.fk+" AS batch_id, i.order_number, i.position, i.width_mm, i.height_mm, i.quantity, i.match_status, i.matched_order_number, i.match_reason, i.conflict_candidates").
			Joins("JOIN "+t.batches+" AS b ON b.id = i."+t.fk).
			Where("b.deleted_at IS NULL AND i.match_status = ?", status).
			Order("i.id ASC").
			Limit(limit).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", t.items, err)
		}
		for i := range rows {
			rows[i].Kind = t.kind
		}
		out = append(out, rows...)
	}
	return out, nil
}
