package models

// MatchStatus classifies whether a line item is attributed to exactly one order.
type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchMatched   MatchStatus = "matched"
	MatchConflict  MatchStatus = "conflict"
	MatchUnmatched MatchStatus = "unmatched"
)

// Valid reports whether s is one of the known match statuses.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchPending, MatchMatched, MatchConflict, MatchUnmatched:
		return true
	}
	return false
}

// GlassOrderStatus is the derived procurement state of an order.
type GlassOrderStatus string

const (
	StatusNotOrdered         GlassOrderStatus = "not_ordered"
	StatusOrdered            GlassOrderStatus = "ordered"
	StatusPartiallyDelivered GlassOrderStatus = "partially_delivered"
	StatusDelivered          GlassOrderStatus = "delivered"
	StatusOverDelivered      GlassOrderStatus = "over_delivered"
)

// ValidationType names a discrepancy condition.
type ValidationType string

const (
	ValidationSurplus      ValidationType = "quantity_surplus"
	ValidationShortage     ValidationType = "quantity_shortage"
	ValidationMissingOrder ValidationType = "missing_production_order"
)

// Valid reports whether t is one of the known validation types.
func (t ValidationType) Valid() bool {
	switch t {
	case ValidationSurplus, ValidationShortage, ValidationMissingOrder:
		return true
	}
	return false
}

// Severity ranks a validation for triage.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ItemKind selects one of the two line-item tables.
type ItemKind string

const (
	KindOrderItem    ItemKind = "order"
	KindDeliveryItem ItemKind = "delivery"
)

// Valid reports whether k names a line-item table.
func (k ItemKind) Valid() bool {
	return k == KindOrderItem || k == KindDeliveryItem
}
