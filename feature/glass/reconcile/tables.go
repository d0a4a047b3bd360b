package reconcile

import (
	"fmt"

	"glass-tracker/feature/glass/models"
)

// itemTable describes where a kind of line item and its parent batch live.
type itemTable struct {
	kind    models.ItemKind
	items   string
	batches string
	fk      string
}

var (
	orderItems = itemTable{
		kind:    models.KindOrderItem,
		items:   "glass_order_items",
		batches: "glass_orders",
		fk:      "glass_order_id",
	}
	deliveryItems = itemTable{
		kind:    models.KindDeliveryItem,
		items:   "glass_delivery_items",
		batches: "glass_deliveries",
		fk:      "glass_delivery_id",
	}
	itemTables = []itemTable{orderItems, deliveryItems}
)

func tableFor(kind models.ItemKind) (itemTable, error) {
	switch kind {
	case models.KindOrderItem:
		return orderItems, nil
	case models.KindDeliveryItem:
		return deliveryItems, nil
	}
	return itemTable{}, fmt.Errorf("%w: unknown item kind %q", ErrInvalidFact, kind)
}

// itemRow is the kind-independent projection of a line item used by the matcher.
type itemRow struct {
	ID                 uint
	BatchID            uint
	OrderNumber        string
	Quantity           int
	MatchStatus        models.MatchStatus
	MatchedOrderNumber string
	MatchReason        string
	ConflictCandidates string
}

func (t itemTable) selectRow() string {
	return "id, " + t.fk + " AS batch_id, order_number, quantity, match_status, matched_order_number, match_reason, conflict_candidates"
}
