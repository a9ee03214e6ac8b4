package device

import "time"

// Device represents one BLE beacon known to the fleet, keyed by MAC address.
type Device struct {
	ID         int64     `json:"id"`
	MACAddress string    `json:"mac_address"`
	Name       string    `json:"name"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
}
