// Package monitor manages fleet agent identity and the finalizer lease.
//
// Every BeaconWatch agent registers itself in the shared monitors table at
// startup (idempotent upsert keyed on the agent name) and touches its
// last_seen column every cycle. The same table carries the fleet's single
// finalizer lease: at most one monitor row has is_lease_holder set with a
// fresh lease_claimed_at timestamp.
//
// # Lease protocol
//
// A lease is fresh while now - lease_claimed_at < TTL. The LeaseManager
// claims, renews and releases the lease through the Repository; the claim
// is a single conditional UPDATE whose predicate proves that no other
// fresh holder exists, so two racing claimants can never both succeed:
// after the first one commits, the second one's predicate no longer
// matches and its RowsAffected is zero.
//
// Crashed holders never release; TTL expiry is the correctness backstop
// that makes their lease reclaimable.
package monitor
