package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Querier is the subset of sql.DB and sql.Tx the repository needs. It lets
// the same repository run standalone or inside a caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository defines the interface for device persistence operations.
type Repository interface {
	// Upsert creates the device on first sighting or refreshes it on a
	// repeat sighting. last_seen always advances to seenAt; an empty
	// incoming name never clobbers a previously learned one.
	Upsert(ctx context.Context, mac, name string, seenAt time.Time) (*Device, error)

	// GetByMAC retrieves a device by MAC address.
	// Returns ErrDeviceNotFound if it does not exist.
	GetByMAC(ctx context.Context, mac string) (*Device, error)

	// List retrieves all known devices, most recently seen first.
	List(ctx context.Context) ([]Device, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	q Querier
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{q: db}
}

// WithTx returns a repository bound to the given transaction, so device
// writes can participate in a caller's atomic unit of work.
func (r *SQLiteRepository) WithTx(tx *sql.Tx) *SQLiteRepository {
	return &SQLiteRepository{q: tx}
}

// Upsert creates or refreshes a device row keyed on MAC address.
func (r *SQLiteRepository) Upsert(ctx context.Context, mac, name string, seenAt time.Time) (*Device, error) {
	if mac == "" {
		return nil, ErrInvalidMAC
	}

	seen := seenAt.UTC().Format(time.RFC3339)
	query := `
		INSERT INTO devices (mac_address, name, first_seen, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(mac_address) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE devices.name END,
			last_seen = excluded.last_seen`

	if _, err := r.q.ExecContext(ctx, query, mac, name, seen, seen); err != nil {
		return nil, fmt.Errorf("upserting device: %w", err)
	}

	return r.GetByMAC(ctx, mac)
}

// GetByMAC retrieves a device by MAC address.
func (r *SQLiteRepository) GetByMAC(ctx context.Context, mac string) (*Device, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT id, mac_address, name, first_seen, last_seen FROM devices WHERE mac_address = ?",
		mac,
	)

	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by MAC: %w", err)
	}
	return d, nil
}

// List retrieves all devices, most recently seen first.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT id, mac_address, name, first_seen, last_seen FROM devices ORDER BY last_seen DESC, mac_address",
	)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var firstSeen, lastSeen string

	if err := scanner.Scan(&d.ID, &d.MACAddress, &d.Name, &firstSeen, &lastSeen); err != nil {
		return nil, err
	}

	var parseErr error
	d.FirstSeen, parseErr = time.Parse(time.RFC3339, firstSeen)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing first_seen: %w", parseErr)
	}
	d.LastSeen, parseErr = time.Parse(time.RFC3339, lastSeen)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing last_seen: %w", parseErr)
	}

	return &d, nil
}
