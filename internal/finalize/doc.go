// Package finalize consolidates staged BLE sightings into one reading per
// device per interval. Only the current lease holder runs it.
//
// Consolidation for a window is a single SQLite transaction: ensure device
// rows exist, upsert the winning reading per device, mark the window's
// staging rows processed. If any step fails the transaction rolls back and
// the window stays pending, so a later run (by this agent or a successor)
// redoes it from scratch. Winner selection is a pure function over the
// staged rows and is deterministic under duplicates.
package finalize
