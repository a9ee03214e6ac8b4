package sighting

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MonitorStats summarises one agent's recent activity for the dashboard.
type MonitorStats struct {
	MonitorID     int64     `json:"monitor_id"`
	Name          string    `json:"name"`
	Location      string    `json:"location"`
	IsActive      bool      `json:"is_active"`
	IsLeaseHolder bool      `json:"is_lease_holder"`
	LastSeen      time.Time `json:"last_seen"`
	DeviceCount   int       `json:"device_count"`
	SightingCount int       `json:"sighting_count"`
}

// RecentSighting is a finalized sighting joined with device and monitor
// identity for display.
type RecentSighting struct {
	MACAddress    string    `json:"mac_address"`
	DeviceName    string    `json:"device_name"`
	MonitorName   string    `json:"monitor_name"`
	RSSI          int       `json:"rssi"`
	IntervalStart time.Time `json:"interval_start"`
}

// TopDevice ranks a device by how many intervals it was sighted in.
type TopDevice struct {
	MACAddress    string    `json:"mac_address"`
	DeviceName    string    `json:"device_name"`
	SightingCount int       `json:"sighting_count"`
	LastSeen      time.Time `json:"last_seen"`
}

// HourlyBucket aggregates one monitor's finalized sightings for one hour.
type HourlyBucket struct {
	Hour          string  `json:"hour"`
	MonitorName   string  `json:"monitor_name"`
	DeviceCount   int     `json:"device_count"`
	SightingCount int     `json:"sighting_count"`
	AvgRSSI       float64 `json:"avg_rssi"`
	MinRSSI       int     `json:"min_rssi"`
	MaxRSSI       int     `json:"max_rssi"`
}

// Reporter runs the read-only dashboard queries. It reads across the
// monitors, devices and sighting tables, so it takes the raw connection
// rather than going through the per-table repositories.
type Reporter struct {
	db *sql.DB
}

// NewReporter creates a reporter over an open database.
func NewReporter(db *sql.DB) *Reporter {
	return &Reporter{db: db}
}

// MonitorStats returns per-agent device and sighting counts for finalized
// sightings since the given instant, typically now minus 24 hours.
func (r *Reporter) MonitorStats(ctx context.Context, since time.Time) ([]MonitorStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.name, m.location, m.is_active, m.is_lease_holder, m.last_seen,
		       COUNT(DISTINCT f.device_id),
		       COUNT(f.id)
		FROM monitors m
		LEFT JOIN finalized_sightings f
			ON f.monitor_id = m.id AND f.interval_start >= ?
		GROUP BY m.id
		ORDER BY m.name`,
		since.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("querying monitor stats: %w", err)
	}
	defer rows.Close()

	var stats []MonitorStats
	for rows.Next() {
		var s MonitorStats
		var isActive, isHolder int
		var lastSeen string
		if err := rows.Scan(&s.MonitorID, &s.Name, &s.Location, &isActive, &isHolder,
			&lastSeen, &s.DeviceCount, &s.SightingCount); err != nil {
			return nil, fmt.Errorf("scanning monitor stats: %w", err)
		}
		s.IsActive = isActive != 0
		s.IsLeaseHolder = isHolder != 0
		if s.LastSeen, err = time.Parse(time.RFC3339, lastSeen); err != nil {
			return nil, fmt.Errorf("parsing last_seen: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating monitor stats: %w", err)
	}
	return stats, nil
}

// Recent returns the most recently finalized sightings, newest first.
func (r *Reporter) Recent(ctx context.Context, limit int) ([]RecentSighting, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT d.mac_address, d.name, m.name, f.rssi, f.interval_start
		FROM finalized_sightings f
		JOIN devices d ON d.id = f.device_id
		JOIN monitors m ON m.id = f.monitor_id
		ORDER BY f.interval_start DESC, f.id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent sightings: %w", err)
	}
	defer rows.Close()

	var recent []RecentSighting
	for rows.Next() {
		var s RecentSighting
		var interval string
		if err := rows.Scan(&s.MACAddress, &s.DeviceName, &s.MonitorName, &s.RSSI, &interval); err != nil {
			return nil, fmt.Errorf("scanning recent sighting: %w", err)
		}
		if s.IntervalStart, err = time.Parse(time.RFC3339, interval); err != nil {
			return nil, fmt.Errorf("parsing interval_start: %w", err)
		}
		recent = append(recent, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent sightings: %w", err)
	}
	return recent, nil
}

// TopDevices ranks devices by finalized sighting count since the given
// instant.
func (r *Reporter) TopDevices(ctx context.Context, since time.Time, limit int) ([]TopDevice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT d.mac_address, d.name, COUNT(f.id) AS sightings, d.last_seen
		FROM devices d
		JOIN finalized_sightings f ON f.device_id = d.id
		WHERE f.interval_start >= ?
		GROUP BY d.id
		ORDER BY sightings DESC, d.mac_address
		LIMIT ?`,
		since.UTC().Format(time.RFC3339),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying top devices: %w", err)
	}
	defer rows.Close()

	var top []TopDevice
	for rows.Next() {
		var d TopDevice
		var lastSeen string
		if err := rows.Scan(&d.MACAddress, &d.DeviceName, &d.SightingCount, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning top device: %w", err)
		}
		if d.LastSeen, err = time.Parse(time.RFC3339, lastSeen); err != nil {
			return nil, fmt.Errorf("parsing last_seen: %w", err)
		}
		top = append(top, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating top devices: %w", err)
	}
	return top, nil
}

// Hourly aggregates finalized sightings per monitor per hour since the
// given instant. The hour key is the RFC3339 prefix "2026-08-15T12",
// which groups correctly because the stored text is fixed-width UTC.
func (r *Reporter) Hourly(ctx context.Context, since time.Time) ([]HourlyBucket, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT substr(f.interval_start, 1, 13) AS hour,
		       m.name,
		       COUNT(DISTINCT f.device_id),
		       COUNT(f.id),
		       AVG(f.rssi),
		       MIN(f.rssi),
		       MAX(f.rssi)
		FROM finalized_sightings f
		JOIN monitors m ON m.id = f.monitor_id
		WHERE f.interval_start >= ?
		GROUP BY hour, m.id
		ORDER BY hour, m.name`,
		since.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("querying hourly report: %w", err)
	}
	defer rows.Close()

	var buckets []HourlyBucket
	for rows.Next() {
		var b HourlyBucket
		if err := rows.Scan(&b.Hour, &b.MonitorName, &b.DeviceCount, &b.SightingCount,
			&b.AvgRSSI, &b.MinRSSI, &b.MaxRSSI); err != nil {
			return nil, fmt.Errorf("scanning hourly bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hourly report: %w", err)
	}
	return buckets, nil
}
