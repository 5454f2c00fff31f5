// Package store provides SQLite-backed durable storage for calibration
// constants.
//
// The store keeps:
//   - Directories and type tables (with their ordered columns)
//   - Variations, each with an optional parent
//   - Assignments: immutable value blocks bound to a table, variation and run range
//   - Version counters, one per (type table, variation) pair
//
// Assignments are append-only. A new assignment never modifies an older
// one; it receives the next version number for its (table, variation) pair.
// The counter is bumped inside the same transaction that inserts the
// assignment, so concurrent writers never observe the same version.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Schema changes are applied with goose from the embedded migrations
// directory.
package store
