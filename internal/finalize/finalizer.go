package finalize

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/beaconwatch/beaconwatch-core/internal/device"
	"github.com/beaconwatch/beaconwatch-core/internal/sighting"
)

// Result summarises one window's consolidation.
type Result struct {
	Window    time.Time `json:"window"`
	Staged    int       `json:"staged"`
	Finalized int       `json:"finalized"`
	Marked    int64     `json:"marked"`
}

// Finalizer consolidates staged sightings window by window.
type Finalizer struct {
	db        *sql.DB
	devices   *device.SQLiteRepository
	sightings *sighting.SQLiteRepository
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a finalizer over an open database.
//
// Parameters:
//   - db: shared SQLite connection (transactions are started on it)
//   - devices: device registry repository
//   - sightings: staging/finalized repository
//   - logger: structured logger for consolidation outcomes
func New(db *sql.DB, devices *device.SQLiteRepository, sightings *sighting.SQLiteRepository, logger *slog.Logger) *Finalizer {
	return &Finalizer{
		db:        db,
		devices:   devices,
		sightings: sightings,
		logger:    logger,
		now:       time.Now,
	}
}

// FinalizeWindow consolidates one interval window in a single transaction.
// A window with no unprocessed rows returns an empty Result and no error.
// Re-running on already-consolidated input converges to the same finalized
// rows.
func (f *Finalizer) FinalizeWindow(ctx context.Context, window time.Time) (Result, error) {
	window = window.UTC()
	result := Result{Window: window}

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("starting finalize transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	sightingsTx := f.sightings.WithTx(tx)
	devicesTx := f.devices.WithTx(tx)

	rows, err := sightingsTx.UnprocessedForWindow(ctx, window)
	if err != nil {
		return result, fmt.Errorf("loading staged rows: %w", err)
	}
	result.Staged = len(rows)
	if len(rows) == 0 {
		return result, nil
	}

	winners := SelectBest(rows)
	finalizedAt := f.now().UTC()

	for _, w := range winners {
		dev, err := devicesTx.Upsert(ctx, w.MACAddress, w.DeviceName, w.ScanTimestamp)
		if err != nil {
			return result, fmt.Errorf("ensuring device %s: %w", w.MACAddress, err)
		}

		err = sightingsTx.UpsertFinalized(ctx, sighting.Finalized{
			DeviceID:      dev.ID,
			MonitorID:     w.MonitorID,
			RSSI:          w.RSSI,
			IntervalStart: window,
			FinalizedAt:   finalizedAt,
		})
		if err != nil {
			return result, fmt.Errorf("finalizing device %s: %w", w.MACAddress, err)
		}
	}
	result.Finalized = len(winners)

	result.Marked, err = sightingsTx.MarkProcessed(ctx, window)
	if err != nil {
		return result, fmt.Errorf("marking window processed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("committing finalize transaction: %w", err)
	}

	f.logger.Info("window finalized",
		"window", window.Format(time.RFC3339),
		"staged", result.Staged,
		"finalized", result.Finalized,
	)
	return result, nil
}

// CatchUp consolidates every pending window strictly before the cutoff,
// oldest first. Windows that have accumulated while no leader was running
// get drained one transaction each; a failure stops the sweep and leaves
// the failed window (and everything after it) pending.
func (f *Finalizer) CatchUp(ctx context.Context, before time.Time) ([]Result, error) {
	windows, err := f.sightings.PendingWindows(ctx, before)
	if err != nil {
		return nil, fmt.Errorf("listing pending windows: %w", err)
	}

	var results []Result
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := f.FinalizeWindow(ctx, w)
		if err != nil {
			return results, fmt.Errorf("finalizing window %s: %w", w.Format(time.RFC3339), err)
		}
		results = append(results, res)
	}
	return results, nil
}
