package monitor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for monitor persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
//
// Timestamps are stored as RFC3339 UTC text. That format is fixed-width for
// UTC instants, so lexicographic comparison in SQL matches chronological
// order - the lease freshness predicate depends on this.
type Repository interface {
	// Register upserts the agent's own row keyed on name: it creates the
	// row on first contact and refreshes location, description, active
	// flag and last_seen on every subsequent call. Idempotent.
	Register(ctx context.Context, reg Registration) (*Monitor, error)

	// Touch updates the agent's last_seen heartbeat.
	// Returns ErrMonitorNotFound if the agent never registered.
	Touch(ctx context.Context, name string, now time.Time) error

	// GetByName retrieves a monitor by its unique name.
	// Returns ErrMonitorNotFound if it does not exist.
	GetByName(ctx context.Context, name string) (*Monitor, error)

	// List retrieves all monitors ordered by name.
	List(ctx context.Context) ([]Monitor, error)

	// CurrentLeaseHolder returns the monitor currently flagged as lease
	// holder, or nil if no row holds the lease. Freshness is not checked
	// here; callers apply the TTL.
	CurrentLeaseHolder(ctx context.Context) (*Monitor, error)

	// ClaimLease atomically claims (or refreshes) the lease for name,
	// provided no OTHER monitor holds a claim at or after staleBefore.
	// Stale holder flags are cleared in the same transaction. The boolean
	// reports whether the claim matched - false means another fresh
	// holder won.
	ClaimLease(ctx context.Context, name string, now, staleBefore time.Time) (bool, error)

	// RenewLease extends the claim timestamp only if name is still the
	// recorded holder. The boolean reports whether a row matched.
	RenewLease(ctx context.Context, name string, now time.Time) (bool, error)

	// ReleaseLease clears name's holder state. No-op if name does not
	// hold the lease.
	ReleaseLease(ctx context.Context, name string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const monitorColumns = `id, name, location, description, is_active,
	is_lease_holder, lease_claimed_at, last_seen, created_at`

// Register upserts the agent's identity row.
func (r *SQLiteRepository) Register(ctx context.Context, reg Registration) (*Monitor, error) {
	if reg.Name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrNotRegistered)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO monitors (name, location, description, is_active, last_seen, created_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			location = excluded.location,
			description = excluded.description,
			is_active = 1,
			last_seen = excluded.last_seen`

	if _, err := r.db.ExecContext(ctx, query, reg.Name, reg.Location, reg.Description, now, now); err != nil {
		return nil, fmt.Errorf("registering monitor: %w", err)
	}

	return r.GetByName(ctx, reg.Name)
}

// Touch updates the last_seen heartbeat.
func (r *SQLiteRepository) Touch(ctx context.Context, name string, now time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE monitors SET last_seen = ? WHERE name = ?",
		now.UTC().Format(time.RFC3339), name,
	)
	if err != nil {
		return fmt.Errorf("touching monitor: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMonitorNotFound
	}
	return nil
}

// GetByName retrieves a monitor by its unique name.
func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*Monitor, error) {
	query := "SELECT " + monitorColumns + " FROM monitors WHERE name = ?"

	row := r.db.QueryRowContext(ctx, query, name)
	m, err := scanMonitor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMonitorNotFound
		}
		return nil, fmt.Errorf("querying monitor by name: %w", err)
	}
	return m, nil
}

// List retrieves all monitors.
func (r *SQLiteRepository) List(ctx context.Context) ([]Monitor, error) {
	query := "SELECT " + monitorColumns + " FROM monitors ORDER BY name"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying monitors: %w", err)
	}
	defer rows.Close()

	var monitors []Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning monitor: %w", err)
		}
		monitors = append(monitors, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating monitors: %w", err)
	}
	return monitors, nil
}

// CurrentLeaseHolder returns the monitor flagged as holder, or nil.
func (r *SQLiteRepository) CurrentLeaseHolder(ctx context.Context) (*Monitor, error) {
	query := "SELECT " + monitorColumns + " FROM monitors WHERE is_lease_holder = 1 LIMIT 1"

	row := r.db.QueryRowContext(ctx, query)
	m, err := scanMonitor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying lease holder: %w", err)
	}
	return m, nil
}

// ClaimLease performs the atomic conditional claim.
//
// The claim UPDATE's predicate excludes any other monitor whose claim
// timestamp is at or after staleBefore. SQLite serialises writers, so of
// two racing claimants the second one re-evaluates the predicate after the
// first committed and matches zero rows. Clearing stale holder flags and
// claiming happen in one transaction.
func (r *SQLiteRepository) ClaimLease(ctx context.Context, name string, now, staleBefore time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("starting claim transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	nowStr := now.UTC().Format(time.RFC3339)
	staleStr := staleBefore.UTC().Format(time.RFC3339)

	// Clear any stale holders (dead processors that never released).
	if _, err := tx.ExecContext(ctx, `
		UPDATE monitors
		SET is_lease_holder = 0, lease_claimed_at = NULL
		WHERE is_lease_holder = 1
		  AND name != ?
		  AND (lease_claimed_at IS NULL OR lease_claimed_at < ?)`,
		name, staleStr,
	); err != nil {
		return false, fmt.Errorf("clearing stale leases: %w", err)
	}

	// Claim (or refresh) for self, but only if no other fresh holder exists.
	result, err := tx.ExecContext(ctx, `
		UPDATE monitors
		SET is_lease_holder = 1, lease_claimed_at = ?
		WHERE name = ?
		  AND NOT EXISTS (
			SELECT 1 FROM monitors o
			WHERE o.is_lease_holder = 1
			  AND o.name != ?
			  AND o.lease_claimed_at >= ?
		  )`,
		nowStr, name, name, staleStr,
	)
	if err != nil {
		return false, fmt.Errorf("claiming lease: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing claim: %w", err)
	}
	return rowsAffected > 0, nil
}

// RenewLease extends the claim only for the recorded holder.
func (r *SQLiteRepository) RenewLease(ctx context.Context, name string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE monitors
		SET lease_claimed_at = ?
		WHERE name = ? AND is_lease_holder = 1`,
		now.UTC().Format(time.RFC3339), name,
	)
	if err != nil {
		return false, fmt.Errorf("renewing lease: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ReleaseLease clears the holder state for name.
func (r *SQLiteRepository) ReleaseLease(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE monitors
		SET is_lease_holder = 0, lease_claimed_at = NULL
		WHERE name = ?`,
		name,
	); err != nil {
		return fmt.Errorf("releasing lease: %w", err)
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanMonitor scans a row or rows result into a Monitor.
func scanMonitor(scanner rowScanner) (*Monitor, error) {
	var m Monitor
	var isActive, isLeaseHolder int
	var leaseClaimedAt sql.NullString
	var lastSeen, createdAt string

	err := scanner.Scan(
		&m.ID,
		&m.Name,
		&m.Location,
		&m.Description,
		&isActive,
		&isLeaseHolder,
		&leaseClaimedAt,
		&lastSeen,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	m.IsActive = isActive != 0
	m.IsLeaseHolder = isLeaseHolder != 0

	if leaseClaimedAt.Valid {
		t, err := time.Parse(time.RFC3339, leaseClaimedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing lease_claimed_at: %w", err)
		}
		m.LeaseClaimedAt = &t
	}

	var parseErr error
	m.LastSeen, parseErr = time.Parse(time.RFC3339, lastSeen)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing last_seen: %w", parseErr)
	}
	m.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}

	return &m, nil
}
