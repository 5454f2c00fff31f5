// Package engine creates and resolves calibration constant assignments.
//
// The write path (Engine) validates a parsed document against its type
// table, then resolves the variation, allocates the next version and
// inserts the assignment inside one store transaction. Every validation
// happens before the transaction begins, so a rejected document never
// leaves anything behind.
//
// The read path (Index) picks, for a (table, run, variation) query, the
// highest version whose run range covers the run. When the variation has
// none it walks up the variation's parent chain; an exhausted chain is
// reported as NO_APPLICABLE_ASSIGNMENT.
//
// Overlapping run ranges are never rejected. Recalibration routinely
// re-covers runs that already have constants; the newest version wins.
//
// Version allocation is delegated to the store. The engine holds no
// locks of its own and is safe for concurrent use.
package engine
