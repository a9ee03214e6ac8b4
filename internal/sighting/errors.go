package sighting

import "errors"

var (
	// ErrEmptyBatch is returned when StageBatch is called with no rows.
	ErrEmptyBatch = errors.New("sighting: empty staging batch")

	// ErrInvalidRSSI is returned when an RSSI value falls outside the
	// plausible dBm range for BLE.
	ErrInvalidRSSI = errors.New("sighting: RSSI out of range")
)
