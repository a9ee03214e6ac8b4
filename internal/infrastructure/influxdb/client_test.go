package influxdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beaconwatch/beaconwatch-core/internal/infrastructure/config"
	"github.com/beaconwatch/beaconwatch-core/internal/scan"
)

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestClient_DisconnectedOperations(t *testing.T) {
	// A zero client behaves as disconnected: writes drop silently and the
	// health check reports ErrNotConnected.
	c := &Client{}

	if c.IsConnected() {
		t.Error("zero client should not report connected")
	}

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	// Must not panic despite the nil write API.
	c.WriteSignalStrength("AA:BB:CC:DD:EE:01", "tile", "garage-pi", -60, time.Now())
	c.Flush()

	w := NewSignalWriter(c)
	w.WriteSignal(scan.Observation{MACAddress: "AA:BB:CC:DD:EE:01", RSSI: -60, CapturedAt: time.Now()}, "garage-pi")
}
