// Package scan defines the BLE scanning capability an agent runs each
// cycle. The Scanner interface is the contract; the in-tree implementation
// is a synthetic scanner for platforms without BLE hardware, mirroring the
// simulation mode the fleet uses for development and soak testing.
package scan

import (
	"context"
	"time"
)

// Observation is one advertisement heard during a scan: which beacon, how
// loud, and when.
type Observation struct {
	MACAddress string
	DeviceName string
	RSSI       int
	CapturedAt time.Time
}

// Scanner listens for BLE advertisements for a bounded duration.
//
// Implementations return whatever they heard, deduplicated per MAC with
// the strongest reading kept. A scan that hears nothing returns an empty
// slice and no error; hardware failure is an error the agent degrades to
// an empty batch.
type Scanner interface {
	Scan(ctx context.Context, duration time.Duration) ([]Observation, error)
}
