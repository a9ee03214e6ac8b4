package scan

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Synthetic RSSI bounds, in dBm. Chosen to span "next to the antenna"
// through "edge of range" for typical BLE beacons.
const (
	synthMinRSSI = -90
	synthMaxRSSI = -30
)

// syntheticNames is the pool of advertised names the synthetic fleet
// cycles through. Some beacons advertise no name at all, so a few entries
// are empty.
var syntheticNames = []string{
	"tile-keys", "airtag-wallet", "smarttag-bike", "itag-remote", "", "",
}

// SyntheticScanner fabricates plausible BLE observations without radio
// hardware. The device population is stable across scans (MACs are drawn
// from a fixed pool), so repeated cycles exercise the registry's upsert
// path the way a real deployment would.
type SyntheticScanner struct {
	poolSize int
	rng      *rand.Rand
	now      func() time.Time
}

// NewSyntheticScanner creates a scanner fabricating observations from a
// pool of poolSize fake beacons. Seed fixes the random stream so tests
// can be deterministic.
func NewSyntheticScanner(poolSize int, seed uint64) *SyntheticScanner {
	if poolSize <= 0 {
		poolSize = 8
	}
	return &SyntheticScanner{
		poolSize: poolSize,
		rng:      rand.New(rand.NewPCG(seed, seed)),
		now:      time.Now,
	}
}

// Scan fabricates a batch of observations. It honours context
// cancellation but returns immediately rather than sleeping out the
// duration; there is no radio to wait for.
func (s *SyntheticScanner) Scan(ctx context.Context, duration time.Duration) ([]Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Each beacon in the pool has a chance of being in range this cycle.
	capturedAt := s.now().UTC()
	var observations []Observation
	for i := 0; i < s.poolSize; i++ {
		if s.rng.Float64() > 0.7 {
			continue
		}
		observations = append(observations, Observation{
			MACAddress: fmt.Sprintf("AA:BB:CC:DD:EE:%02X", i),
			DeviceName: syntheticNames[i%len(syntheticNames)],
			RSSI:       synthMinRSSI + s.rng.IntN(synthMaxRSSI-synthMinRSSI+1),
			CapturedAt: capturedAt,
		})
	}
	return observations, nil
}
