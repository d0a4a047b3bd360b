package models

// ExpectedColumns lists the columns each table must carry, keyed by table name.
// The integrity schema check compares these with the live database.
var ExpectedColumns = map[string][]string{
	"orders": {
		"id", "order_number", "order_number_base", "order_number_suffix",
		"ordered_glass_count", "delivered_glass_count", "glass_order_status",
		"glass_delivery_date", "created_at", "updated_at", "deleted_at",
	},
	"glass_orders": {
		"id", "source_ref", "supplier", "ordered_at", "created_at", "updated_at", "deleted_at",
	},
	"glass_order_items": {
		"id", "glass_order_id", "order_number", "position", "width_mm", "height_mm",
		"composition", "quantity", "match_status", "matched_order_number", "match_reason",
		"conflict_candidates", "created_at", "updated_at",
	},
	"glass_deliveries": {
		"id", "source_ref", "rack_number", "delivered_at", "created_at", "updated_at", "deleted_at",
	},
	"glass_delivery_items": {
		"id", "glass_delivery_id", "order_number", "position", "width_mm", "height_mm",
		"quantity", "match_status", "matched_order_number", "match_reason",
		"conflict_candidates", "created_at", "updated_at",
	},
	"glass_order_validations": {
		"id", "order_number", "validation_type", "severity", "ordered_quantity",
		"delivered_quantity", "expected_quantity", "resolved", "resolved_at",
		"resolved_by", "message", "created_at", "updated_at",
	},
}
