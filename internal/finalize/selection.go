package finalize

import (
	"sort"

	"github.com/beaconwatch/beaconwatch-core/internal/sighting"
)

// SelectBest picks the winning observation per device from one window's
// staged rows: highest RSSI wins; ties break to the earliest capture
// timestamp, then to the lowest row ID. The total order makes the outcome
// deterministic even when agents staged duplicate observations.
//
// Winners are returned sorted by MAC address. The input is not modified.
func SelectBest(rows []sighting.Staging) []sighting.Staging {
	best := make(map[string]sighting.Staging)
	for _, row := range rows {
		current, ok := best[row.MACAddress]
		if !ok || beats(row, current) {
			best[row.MACAddress] = row
		}
	}

	winners := make([]sighting.Staging, 0, len(best))
	for _, w := range best {
		winners = append(winners, w)
	}
	sort.Slice(winners, func(i, j int) bool {
		return winners[i].MACAddress < winners[j].MACAddress
	})
	return winners
}

// beats reports whether a should replace b as the winning observation.
func beats(a, b sighting.Staging) bool {
	if a.RSSI != b.RSSI {
		return a.RSSI > b.RSSI
	}
	if !a.ScanTimestamp.Equal(b.ScanTimestamp) {
		return a.ScanTimestamp.Before(b.ScanTimestamp)
	}
	return a.ID < b.ID
}
