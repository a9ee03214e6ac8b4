package finalize

import (
	"testing"
	"time"

	"github.com/beaconwatch/beaconwatch-core/internal/sighting"
)

func TestSelectBest(t *testing.T) {
	window := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	t.Run("strongest signal wins", func(t *testing.T) {
		rows := []sighting.Staging{
			{ID: 1, MACAddress: "AA:BB:CC:DD:EE:01", MonitorID: 1, RSSI: -70, ScanTimestamp: window.Add(5 * time.Second)},
			{ID: 2, MACAddress: "AA:BB:CC:DD:EE:01", MonitorID: 2, RSSI: -45, ScanTimestamp: window.Add(10 * time.Second)},
			{ID: 3, MACAddress: "AA:BB:CC:DD:EE:01", MonitorID: 3, RSSI: -60, ScanTimestamp: window.Add(15 * time.Second)},
		}

		winners := SelectBest(rows)
		if len(winners) != 1 {
			t.Fatalf("expected 1 winner, got %d", len(winners))
		}
		if winners[0].RSSI != -45 || winners[0].MonitorID != 2 {
			t.Errorf("winner = RSSI %d monitor %d, want -45 / 2", winners[0].RSSI, winners[0].MonitorID)
		}
	})

	t.Run("one winner per device", func(t *testing.T) {
		rows := []sighting.Staging{
			{ID: 1, MACAddress: "AA:BB:CC:DD:EE:02", RSSI: -50, ScanTimestamp: window},
			{ID: 2, MACAddress: "AA:BB:CC:DD:EE:01", RSSI: -80, ScanTimestamp: window},
			{ID: 3, MACAddress: "AA:BB:CC:DD:EE:01", RSSI: -75, ScanTimestamp: window},
		}

		winners := SelectBest(rows)
		if len(winners) != 2 {
			t.Fatalf("expected 2 winners, got %d", len(winners))
		}
		// Sorted by MAC.
		if winners[0].MACAddress != "AA:BB:CC:DD:EE:01" || winners[0].RSSI != -75 {
			t.Errorf("first winner = %s / %d, want AA:BB:CC:DD:EE:01 / -75", winners[0].MACAddress, winners[0].RSSI)
		}
		if winners[1].MACAddress != "AA:BB:CC:DD:EE:02" {
			t.Errorf("second winner = %s, want AA:BB:CC:DD:EE:02", winners[1].MACAddress)
		}
	})

	t.Run("equal RSSI breaks to earliest capture", func(t *testing.T) {
		rows := []sighting.Staging{
			{ID: 1, MACAddress: "AA:BB:CC:DD:EE:01", MonitorID: 1, RSSI: -60, ScanTimestamp: window.Add(20 * time.Second)},
			{ID: 2, MACAddress: "AA:BB:CC:DD:EE:01", MonitorID: 2, RSSI: -60, ScanTimestamp: window.Add(5 * time.Second)},
		}

		winners := SelectBest(rows)
		if len(winners) != 1 || winners[0].MonitorID != 2 {
			t.Errorf("expected earliest capture to win, got %+v", winners)
		}
	})

	t.Run("full tie breaks to lowest row ID", func(t *testing.T) {
		ts := window.Add(5 * time.Second)
		rows := []sighting.Staging{
			{ID: 7, MACAddress: "AA:BB:CC:DD:EE:01", MonitorID: 1, RSSI: -60, ScanTimestamp: ts},
			{ID: 3, MACAddress: "AA:BB:CC:DD:EE:01", MonitorID: 2, RSSI: -60, ScanTimestamp: ts},
		}

		winners := SelectBest(rows)
		if len(winners) != 1 || winners[0].ID != 3 {
			t.Errorf("expected row 3 to win, got %+v", winners)
		}
	})

	t.Run("deterministic under input order", func(t *testing.T) {
		rows := []sighting.Staging{
			{ID: 1, MACAddress: "AA:BB:CC:DD:EE:01", RSSI: -60, ScanTimestamp: window.Add(time.Second)},
			{ID: 2, MACAddress: "AA:BB:CC:DD:EE:01", RSSI: -60, ScanTimestamp: window.Add(time.Second)},
			{ID: 3, MACAddress: "AA:BB:CC:DD:EE:02", RSSI: -40, ScanTimestamp: window},
		}
		reversed := []sighting.Staging{rows[2], rows[1], rows[0]}

		a := SelectBest(rows)
		b := SelectBest(reversed)
		if len(a) != len(b) {
			t.Fatalf("winner counts differ: %d vs %d", len(a), len(b))
		}
		for i := range a {
			if a[i].ID != b[i].ID {
				t.Errorf("winner %d differs by input order: %d vs %d", i, a[i].ID, b[i].ID)
			}
		}
	})

	t.Run("empty input yields no winners", func(t *testing.T) {
		if winners := SelectBest(nil); len(winners) != 0 {
			t.Errorf("expected no winners, got %d", len(winners))
		}
	})
}
