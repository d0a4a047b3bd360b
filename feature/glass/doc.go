// Package glass exposes the glass-pane reconciliation engine over HTTP.
//
// It wires the reconcile engine into the feature loader and maps engine errors to
// HTTP status codes. Every route lives under /glass and is protected by the global
// API key middleware.
//
// # HTTP Endpoints
//
//   - POST   /glass/orders : Registers (or restores) an order and re-drives its backlog.
//   - GET    /glass/orders/:orderNumber : Counters, status and open validations.
//   - DELETE /glass/orders/:orderNumber : Soft-deletes an order and releases its items.
//   - POST   /glass/orders/:orderNumber/recompute : Recomputes one order from its facts.
//   - POST   /glass/glass-orders, /glass/deliveries : Imports a supplier batch.
//   - DELETE /glass/glass-orders/:id, /glass/deliveries/:id : Deletes a batch.
//   - POST   /glass/deliveries/:id/dedup : Removes duplicate lines (supports ?dry_run=true).
//   - GET    /glass/validations : The worklist (?type=&severity=&order=&resolved=).
//   - GET    /glass/validations/dashboard : Open validation and backlog counts.
//   - POST   /glass/validations/:id/resolve : Operator resolution.
//   - GET    /glass/items/conflicts : Items waiting for a human decision (?status=unmatched).
//   - POST   /glass/items/:kind/:id/assign : Manual attribution of an item.
//   - GET    /glass/explain/:raw : Dry-run of the matcher for one raw order number.
//   - POST   /glass/rematch : Runs the rematch sweep.
//   - GET    /glass/worklist.xlsx : The worklist as a spreadsheet.
package glass
