// Package reconcile implements the glass reconciliation engine.
//
// Line items arrive from supplier glass orders and from deliveries, independently and
// in any order. The engine attributes each item to an order, derives the order's
// counters and status from the currently matched items, records discrepancies in the
// validation ledger, removes duplicate imports and re-drives the backlog when orders
// appear later than their panes.
//
// # Chain
//
//	ingest -> dedup -> match -> recompute -> ledger
//
// Every step that changes which items count for an order returns the affected order
// numbers (and raw strings for the missing-order ledger) and feeds them to the next
// step. Nothing relies on database cascades to keep counters correct.
//
// # Matching
//
// Match runs exact-then-parse:
//
//  1. An order whose number equals the raw string matches.
//  2. Otherwise the raw string is parsed (see core/ordernumber). Unparseable strings
//     are unmatched with reason parse_error:<code>.
//  3. A suffixed raw string matches only orders with the same canonical form.
//  4. A bare base number matches the base order when it is the only plausible order;
//     a base together with suffixed variants, or variants alone, is a conflict.
//
// Conflicts are never resolved automatically. AssignItem records an operator decision,
// which the sweeps leave alone afterwards.
//
// # Recompute
//
// Counters are a pure function of matched facts, computed under a keyed lock in one
// transaction. Re-running with unchanged facts writes nothing.
//
// # Concurrency
//
// Order-scoped work runs under lock key "order:<number>"; the missing-order ledger
// uses "missing:<raw>". Locks are always taken before a transaction begins and never
// inside one.
package reconcile
