// Package models defines the persisted glass-tracking schema.
//
// Orders carry the derived counters (ordered, delivered, status) that only the
// reconciliation engine writes. Glass orders and deliveries are import batches whose
// line items are immutable facts apart from their match columns. Validations are the
// discrepancy audit trail and are never hard-deleted.
package models
