package sighting

import "time"

// Staging is one raw observation written by an agent during a scan cycle.
// Many staging rows for the same device and window may exist, one per agent
// (or more, if an agent retried a batch).
type Staging struct {
	ID            int64     `json:"id"`
	MACAddress    string    `json:"mac_address"`
	DeviceName    string    `json:"device_name"`
	MonitorID     int64     `json:"monitor_id"`
	RSSI          int       `json:"rssi"`
	IntervalStart time.Time `json:"interval_start"`
	ScanTimestamp time.Time `json:"scan_timestamp"`
	Processed     bool      `json:"processed"`
}

// Finalized is the single consolidated reading for one device in one
// interval: the strongest signal the fleet saw, attributed to the monitor
// that reported it.
type Finalized struct {
	ID            int64     `json:"id"`
	DeviceID      int64     `json:"device_id"`
	MonitorID     int64     `json:"monitor_id"`
	RSSI          int       `json:"rssi"`
	IntervalStart time.Time `json:"interval_start"`
	FinalizedAt   time.Time `json:"finalized_at"`
}
