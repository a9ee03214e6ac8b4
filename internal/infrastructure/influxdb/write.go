package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/beaconwatch/beaconwatch-core/internal/scan"
)

// WriteSignalStrength records one RSSI observation.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Dropped writes while disconnected are silent, matching the advisory
// nature of the history sink.
//
// Parameters:
//   - mac: Beacon MAC address
//   - deviceName: Advertised name, may be empty
//   - monitorName: The observing agent's registered name
//   - rssi: Signal strength in dBm
//   - capturedAt: When the advertisement was heard
func (c *Client) WriteSignalStrength(mac, deviceName, monitorName string, rssi int, capturedAt time.Time) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"mac_address": mac,
		"monitor":     monitorName,
	}
	if deviceName != "" {
		tags["device_name"] = deviceName
	}

	point := write.NewPoint(
		"signal_strength",
		tags,
		map[string]interface{}{
			"rssi": rssi,
		},
		capturedAt,
	)

	c.writeAPI.WritePoint(point)
}

// SignalWriter adapts the client to the agent loop's observation sink.
type SignalWriter struct {
	client *Client
}

// NewSignalWriter creates the observation sink adapter.
func NewSignalWriter(client *Client) *SignalWriter {
	return &SignalWriter{client: client}
}

// WriteSignal records one scan observation attributed to the named agent.
func (w *SignalWriter) WriteSignal(obs scan.Observation, agentName string) {
	w.client.WriteSignalStrength(obs.MACAddress, obs.DeviceName, agentName, obs.RSSI, obs.CapturedAt)
}
