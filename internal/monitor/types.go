package monitor

import "time"

// Monitor represents one fleet agent's row in the shared store.
// The Name is the fleet-wide identity and doubles as the lease key.
type Monitor struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	IsActive    bool       `json:"is_active"`

	// IsLeaseHolder and LeaseClaimedAt together form the lease record.
	// They are mutated only by the LeaseManager.
	IsLeaseHolder  bool       `json:"is_lease_holder"`
	LeaseClaimedAt *time.Time `json:"lease_claimed_at,omitempty"`

	LastSeen  time.Time `json:"last_seen"`
	CreatedAt time.Time `json:"created_at"`
}

// Registration is the identity an agent announces at startup and refreshes
// every cycle. Re-registering with the same name updates location and
// description in place.
type Registration struct {
	Name        string
	Location    string
	Description string
}

// LeaseFresh reports whether the monitor's lease claim is still within ttl
// as of now. A monitor without a claim timestamp is never fresh.
func (m *Monitor) LeaseFresh(now time.Time, ttl time.Duration) bool {
	if !m.IsLeaseHolder || m.LeaseClaimedAt == nil {
		return false
	}
	return now.Sub(*m.LeaseClaimedAt) < ttl
}
