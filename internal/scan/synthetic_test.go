package scan

import (
	"context"
	"regexp"
	"testing"
	"time"
)

func TestSyntheticScanner_Scan(t *testing.T) {
	ctx := context.Background()
	macPattern := regexp.MustCompile(`^AA:BB:CC:DD:EE:[0-9A-F]{2}$`)

	t.Run("observations are well formed", func(t *testing.T) {
		scanner := NewSyntheticScanner(16, 1)

		// Run several cycles so the probabilistic pool produces output.
		var total int
		for i := 0; i < 10; i++ {
			obs, err := scanner.Scan(ctx, 10*time.Second)
			if err != nil {
				t.Fatalf("Scan failed: %v", err)
			}
			total += len(obs)
			for _, o := range obs {
				if !macPattern.MatchString(o.MACAddress) {
					t.Errorf("malformed MAC %q", o.MACAddress)
				}
				if o.RSSI < -90 || o.RSSI > -30 {
					t.Errorf("RSSI %d outside synthetic range", o.RSSI)
				}
				if o.CapturedAt.IsZero() {
					t.Error("zero CapturedAt")
				}
			}
		}
		if total == 0 {
			t.Error("ten scans over a 16-beacon pool produced nothing")
		}
	})

	t.Run("unique MAC per observation within a scan", func(t *testing.T) {
		scanner := NewSyntheticScanner(16, 2)
		obs, err := scanner.Scan(ctx, 10*time.Second)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		seen := make(map[string]bool)
		for _, o := range obs {
			if seen[o.MACAddress] {
				t.Errorf("duplicate MAC %s in one scan", o.MACAddress)
			}
			seen[o.MACAddress] = true
		}
	})

	t.Run("same seed reproduces the stream", func(t *testing.T) {
		a, err := NewSyntheticScanner(8, 42).Scan(ctx, time.Second)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		b, err := NewSyntheticScanner(8, 42).Scan(ctx, time.Second)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(a) != len(b) {
			t.Fatalf("seeded scans differ in length: %d vs %d", len(a), len(b))
		}
		for i := range a {
			if a[i].MACAddress != b[i].MACAddress || a[i].RSSI != b[i].RSSI {
				t.Errorf("seeded scans diverge at %d: %+v vs %+v", i, a[i], b[i])
			}
		}
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := NewSyntheticScanner(8, 1).Scan(cancelled, time.Second); err == nil {
			t.Error("expected error from cancelled context")
		}
	})
}
