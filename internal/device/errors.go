package device

import "errors"

var (
	// ErrDeviceNotFound is returned when a device lookup matches nothing.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidMAC is returned when a MAC address is empty.
	ErrInvalidMAC = errors.New("device: invalid MAC address")
)
