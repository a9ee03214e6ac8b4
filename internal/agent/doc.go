// Package agent runs one sensor node's cycle: register, scan, stage, and,
// when this agent holds the finalizer lease, consolidate completed
// intervals. The loop is strictly sequential; a cycle's states are
// Idle, Scanning, Staging, LeaderWait, Finalizing and Sleeping, and
// cancellation is observed at the boundaries between them.
//
// Leadership is never ambient: each cycle re-checks eligibility against
// the shared lease table, and the outcome of that check alone decides
// whether the finalize states run.
package agent
