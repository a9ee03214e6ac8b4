// Package sighting persists BLE observations through their two-stage
// lifecycle: raw staged rows written by every agent during a scan cycle,
// and finalized rows produced once per interval by the lease holder.
//
// Staging is append-only. Rows carry the interval window they were captured
// in and a one-way processed flag; duplicates from agent retries are
// tolerated because finalization picks a single winner per device per
// window. Finalized rows are keyed (device, interval) and upserted, so
// re-finalizing a window converges instead of duplicating.
package sighting
