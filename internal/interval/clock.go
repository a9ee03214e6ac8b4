// Package interval provides window alignment math for sighting consolidation.
//
// Every raw sighting is tagged with the start of the fixed-length window it
// was captured in, and the finalizer consolidates exactly one window at a
// time. Floor is the single source of truth for that alignment: it is pure,
// deterministic and idempotent, so every agent in the fleet computes the
// same window start for the same instant.
package interval

import "time"

// DefaultWindow is the standard consolidation window length.
const DefaultWindow = 5 * time.Minute

// Floor returns the start of the window containing t.
//
// Windows are aligned to the Unix epoch: for window length W, the returned
// time is the largest multiple of W (since the epoch) that is not after t.
// The result is always in UTC so that stored window starts compare equal
// across agents regardless of their local timezone.
//
// Properties relied on by the rest of the system:
//
//	Floor(t, w) <= t < Floor(t, w) + w
//	Floor(Floor(t, w), w) == Floor(t, w)
func Floor(t time.Time, window time.Duration) time.Time {
	if window <= 0 {
		return t.UTC()
	}
	return t.UTC().Truncate(window)
}

// Previous returns the start of the window immediately before the one
// containing t. The finalizer consolidates the previous window after the
// grace delay, once all agents have had time to stage their sightings.
func Previous(t time.Time, window time.Duration) time.Time {
	return Floor(t, window).Add(-window)
}
