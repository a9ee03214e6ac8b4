package sighting

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RSSI bounds considered plausible for BLE hardware, in dBm.
const (
	minRSSI = -120
	maxRSSI = 0
)

// Querier is the subset of sql.DB and sql.Tx the repository needs.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository defines persistence operations for staged and finalized
// sightings.
type Repository interface {
	// StageBatch appends one scan cycle's observations in a single
	// statement batch. Rows are tagged with the capture window by the
	// caller. Returns ErrEmptyBatch for an empty slice.
	StageBatch(ctx context.Context, rows []Staging) error

	// UnprocessedForWindow returns all staged rows for the window that
	// have not been consolidated yet, in insertion order.
	UnprocessedForWindow(ctx context.Context, window time.Time) ([]Staging, error)

	// PendingWindows returns the distinct windows with unprocessed rows
	// strictly before the given cutoff, oldest first. The finalizer uses
	// this to catch up on windows missed while no leader was running.
	PendingWindows(ctx context.Context, before time.Time) ([]time.Time, error)

	// MarkProcessed flips the processed flag for every staged row in the
	// window and reports how many rows it touched.
	MarkProcessed(ctx context.Context, window time.Time) (int64, error)

	// UpsertFinalized writes the consolidated reading for one device in
	// one window, replacing any earlier finalization of the same pair.
	UpsertFinalized(ctx context.Context, f Finalized) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	q Querier
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{q: db}
}

// WithTx returns a repository bound to the given transaction. The
// finalizer uses this so marking processed and writing finalized rows
// commit or roll back together.
func (r *SQLiteRepository) WithTx(tx *sql.Tx) *SQLiteRepository {
	return &SQLiteRepository{q: tx}
}

// StageBatch appends observations to the staging table.
func (r *SQLiteRepository) StageBatch(ctx context.Context, rows []Staging) error {
	if len(rows) == 0 {
		return ErrEmptyBatch
	}

	query := `
		INSERT INTO staging_sightings
			(mac_address, device_name, monitor_id, rssi, interval_start, scan_timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`

	for _, row := range rows {
		if row.RSSI < minRSSI || row.RSSI > maxRSSI {
			return fmt.Errorf("%w: %d dBm for %s", ErrInvalidRSSI, row.RSSI, row.MACAddress)
		}
		if _, err := r.q.ExecContext(ctx, query,
			row.MACAddress,
			row.DeviceName,
			row.MonitorID,
			row.RSSI,
			row.IntervalStart.UTC().Format(time.RFC3339),
			row.ScanTimestamp.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("staging sighting for %s: %w", row.MACAddress, err)
		}
	}
	return nil
}

// UnprocessedForWindow returns staged rows awaiting consolidation.
func (r *SQLiteRepository) UnprocessedForWindow(ctx context.Context, window time.Time) ([]Staging, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, mac_address, device_name, monitor_id, rssi,
		       interval_start, scan_timestamp, processed
		FROM staging_sightings
		WHERE interval_start = ? AND processed = 0
		ORDER BY id`,
		window.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("querying unprocessed sightings: %w", err)
	}
	defer rows.Close()

	var result []Staging
	for rows.Next() {
		s, err := scanStaging(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning staged sighting: %w", err)
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating staged sightings: %w", err)
	}
	return result, nil
}

// PendingWindows returns distinct unprocessed windows before the cutoff.
func (r *SQLiteRepository) PendingWindows(ctx context.Context, before time.Time) ([]time.Time, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT DISTINCT interval_start
		FROM staging_sightings
		WHERE processed = 0 AND interval_start < ?
		ORDER BY interval_start`,
		before.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("querying pending windows: %w", err)
	}
	defer rows.Close()

	var windows []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning window: %w", err)
		}
		w, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("parsing interval_start: %w", err)
		}
		windows = append(windows, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending windows: %w", err)
	}
	return windows, nil
}

// MarkProcessed flips the processed flag for the whole window.
func (r *SQLiteRepository) MarkProcessed(ctx context.Context, window time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx, `
		UPDATE staging_sightings
		SET processed = 1
		WHERE interval_start = ? AND processed = 0`,
		window.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("marking window processed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected, nil
}

// UpsertFinalized writes the winning reading for (device, window).
func (r *SQLiteRepository) UpsertFinalized(ctx context.Context, f Finalized) error {
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO finalized_sightings
			(device_id, monitor_id, rssi, interval_start, finalized_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(device_id, interval_start) DO UPDATE SET
			monitor_id = excluded.monitor_id,
			rssi = excluded.rssi,
			finalized_at = excluded.finalized_at`,
		f.DeviceID,
		f.MonitorID,
		f.RSSI,
		f.IntervalStart.UTC().Format(time.RFC3339),
		f.FinalizedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("upserting finalized sighting: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStaging(scanner rowScanner) (*Staging, error) {
	var s Staging
	var processed int
	var intervalStart, scanTimestamp string

	err := scanner.Scan(
		&s.ID,
		&s.MACAddress,
		&s.DeviceName,
		&s.MonitorID,
		&s.RSSI,
		&intervalStart,
		&scanTimestamp,
		&processed,
	)
	if err != nil {
		return nil, err
	}

	s.Processed = processed != 0

	var parseErr error
	s.IntervalStart, parseErr = time.Parse(time.RFC3339, intervalStart)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing interval_start: %w", parseErr)
	}
	s.ScanTimestamp, parseErr = time.Parse(time.RFC3339, scanTimestamp)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing scan_timestamp: %w", parseErr)
	}

	return &s, nil
}
