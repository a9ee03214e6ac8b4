package monitor

import "errors"

// Domain errors for the monitor package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, monitor.ErrLeaseHeldElsewhere) {
//	    // stay a non-leader this cycle
//	}
var (
	// ErrMonitorNotFound is returned when a monitor name does not exist.
	ErrMonitorNotFound = errors.New("monitor: not found")

	// ErrLeaseHeldElsewhere is returned by TryClaim when another agent
	// holds a fresh lease. Non-fatal: the caller stays a non-leader for
	// this cycle and retries eligibility on the next one.
	ErrLeaseHeldElsewhere = errors.New("monitor: lease held by another agent")

	// ErrNotRegistered is returned when lease operations are attempted
	// for a monitor that has never registered.
	ErrNotRegistered = errors.New("monitor: agent not registered")
)
