package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LeaseManager coordinates which agent finalizes intervals. Exactly one
// fresh lease holder exists at a time; everyone else stages sightings and
// skips finalization.
//
// The manager is a thin policy layer: the atomic claim itself lives in the
// repository, and the manager decides when a claim attempt is even worth
// making and translates outcomes into sentinel errors.
type LeaseManager struct {
	repo   Repository
	self   string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewLeaseManager creates a lease manager for the named agent.
//
// Parameters:
//   - repo: monitor repository backing the shared lease table
//   - self: this agent's registered name
//   - ttl: how long a claim stays fresh without renewal
//   - logger: structured logger for lease transitions
func NewLeaseManager(repo Repository, self string, ttl time.Duration, logger *slog.Logger) *LeaseManager {
	return &LeaseManager{
		repo:   repo,
		self:   self,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Self returns the agent name this manager claims for.
func (lm *LeaseManager) Self() string {
	return lm.self
}

// IsHolder reports whether this agent currently holds a fresh lease.
func (lm *LeaseManager) IsHolder(ctx context.Context) (bool, error) {
	holder, err := lm.repo.CurrentLeaseHolder(ctx)
	if err != nil {
		return false, err
	}
	if holder == nil || holder.Name != lm.self {
		return false, nil
	}
	return holder.LeaseFresh(lm.now(), lm.ttl), nil
}

// TryClaim attempts to take (or refresh) the finalizer lease.
//
// A fresh claim by another agent short-circuits without writing. Otherwise
// the repository runs the atomic conditional claim; losing that race also
// yields ErrLeaseHeldElsewhere. Claiming a lease this agent already holds
// refreshes the claim timestamp.
func (lm *LeaseManager) TryClaim(ctx context.Context) error {
	now := lm.now().UTC()
	staleBefore := now.Add(-lm.ttl)

	holder, err := lm.repo.CurrentLeaseHolder(ctx)
	if err != nil {
		return fmt.Errorf("checking current holder: %w", err)
	}
	if holder != nil && holder.Name != lm.self && holder.LeaseFresh(now, lm.ttl) {
		return ErrLeaseHeldElsewhere
	}

	claimed, err := lm.repo.ClaimLease(ctx, lm.self, now, staleBefore)
	if err != nil {
		return fmt.Errorf("claiming lease: %w", err)
	}
	if !claimed {
		// Lost the race to a claimant that committed between our read
		// and the conditional update.
		return ErrLeaseHeldElsewhere
	}

	if holder == nil || holder.Name != lm.self {
		lm.logger.Info("finalizer lease acquired",
			"agent", lm.self,
			"ttl_seconds", lm.ttl.Seconds(),
		)
	}
	return nil
}

// Renew extends the claim timestamp if this agent still holds the lease.
// A lost lease is not an error; the next TryClaim sorts it out.
func (lm *LeaseManager) Renew(ctx context.Context) error {
	renewed, err := lm.repo.RenewLease(ctx, lm.self, lm.now().UTC())
	if err != nil {
		return fmt.Errorf("renewing lease: %w", err)
	}
	if !renewed {
		lm.logger.Warn("lease renewal matched no row, lease lost", "agent", lm.self)
	}
	return nil
}

// Release voluntarily gives up the lease, typically during shutdown so a
// peer can take over without waiting out the TTL.
func (lm *LeaseManager) Release(ctx context.Context) error {
	if err := lm.repo.ReleaseLease(ctx, lm.self); err != nil {
		return fmt.Errorf("releasing lease: %w", err)
	}
	lm.logger.Info("finalizer lease released", "agent", lm.self)
	return nil
}
