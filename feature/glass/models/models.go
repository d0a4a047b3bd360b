package models

import (
	"time"

	"gorm.io/gorm"
)

// Order is a production job identified by its order number.
type Order struct {
	ID                  uint             `gorm:"primaryKey" json:"id"`
	OrderNumber         string           `gorm:"size:32;uniqueIndex;not null" json:"order_number"`
	OrderNumberBase     string           `gorm:"size:20;index" json:"order_number_base"`
	OrderNumberSuffix   string           `gorm:"size:4" json:"order_number_suffix,omitempty"`
	OrderedGlassCount   int              `gorm:"not null;default:0" json:"ordered_glass_count"`
	DeliveredGlassCount int              `gorm:"not null;default:0" json:"delivered_glass_count"`
	GlassOrderStatus    GlassOrderStatus `gorm:"size:24;not null;default:not_ordered" json:"glass_order_status"`
	GlassDeliveryDate   *time.Time       `json:"glass_delivery_date,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	DeletedAt           gorm.DeletedAt   `gorm:"index" json:"-"`
}

// GlassOrder is a supplier glass-order import batch.
type GlassOrder struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	SourceRef string           `gorm:"size:191;uniqueIndex;not null" json:"source_ref"`
	Supplier  string           `gorm:"size:128" json:"supplier"`
	OrderedAt *time.Time       `json:"ordered_at,omitempty"`
	Items     []GlassOrderItem `gorm:"foreignKey:GlassOrderID" json:"items,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	DeletedAt gorm.DeletedAt   `gorm:"index" json:"-"`
}

// GlassOrderItem is one intended pane line on a supplier glass order.
type GlassOrderItem struct {
	ID                 uint        `gorm:"primaryKey" json:"id"`
	GlassOrderID       uint        `gorm:"index;not null" json:"glass_order_id"`
	OrderNumber        string      `gorm:"size:64;index;not null" json:"order_number"`
	Position           string      `gorm:"size:32" json:"position"`
	WidthMm            int         `json:"width_mm"`
	HeightMm           int         `json:"height_mm"`
	Composition        string      `gorm:"size:128" json:"composition"`
	Quantity           int         `gorm:"not null" json:"quantity"`
	MatchStatus        MatchStatus `gorm:"size:16;index;not null;default:pending" json:"match_status"`
	MatchedOrderNumber string      `gorm:"size:32;index" json:"matched_order_number,omitempty"`
	MatchReason        string      `gorm:"size:128" json:"match_reason,omitempty"`
	ConflictCandidates string      `gorm:"size:512" json:"conflict_candidates,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// GlassDelivery is a delivery import batch, typically one rack.
type GlassDelivery struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	SourceRef   string              `gorm:"size:191;uniqueIndex;not null" json:"source_ref"`
	RackNumber  string              `gorm:"size:64" json:"rack_number"`
	DeliveredAt *time.Time          `json:"delivered_at,omitempty"`
	Items       []GlassDeliveryItem `gorm:"foreignKey:GlassDeliveryID" json:"items,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	DeletedAt   gorm.DeletedAt      `gorm:"index" json:"-"`
}

// GlassDeliveryItem is one physically received pane line.
type GlassDeliveryItem struct {
	ID                 uint        `gorm:"primaryKey" json:"id"`
	GlassDeliveryID    uint        `gorm:"index;not null" json:"glass_delivery_id"`
	OrderNumber        string      `gorm:"size:64;index;not null" json:"order_number"`
	Position           string      `gorm:"size:32" json:"position"`
	WidthMm            int         `json:"width_mm"`
	HeightMm           int         `json:"height_mm"`
	Quantity           int         `gorm:"not null" json:"quantity"`
	MatchStatus        MatchStatus `gorm:"size:16;index;not null;default:pending" json:"match_status"`
	MatchedOrderNumber string      `gorm:"size:32;index" json:"matched_order_number,omitempty"`
	MatchReason        string      `gorm:"size:128" json:"match_reason,omitempty"`
	ConflictCandidates string      `gorm:"size:512" json:"conflict_candidates,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// GlassOrderValidation is one discrepancy record.
type GlassOrderValidation struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	OrderNumber       string         `gorm:"size:64;index:idx_validation_open;not null" json:"order_number"`
	ValidationType    ValidationType `gorm:"size:32;index:idx_validation_open;not null" json:"validation_type"`
	Severity          Severity       `gorm:"size:16;not null" json:"severity"`
	OrderedQuantity   int            `json:"ordered_quantity"`
	DeliveredQuantity int            `json:"delivered_quantity"`
	ExpectedQuantity  int            `json:"expected_quantity"`
	Resolved          bool           `gorm:"index:idx_validation_open;not null;default:false" json:"resolved"`
	ResolvedAt        *time.Time     `json:"resolved_at,omitempty"`
	ResolvedBy        string         `gorm:"size:64" json:"resolved_by,omitempty"`
	Message           string         `gorm:"size:512" json:"message"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// All returns every model in migration order.
func All() []any {
	return []any{
		&Order{},
		&GlassOrder{},
		&GlassOrderItem{},
		&GlassDelivery{},
		&GlassDeliveryItem{},
		&GlassOrderValidation{},
	}
}
