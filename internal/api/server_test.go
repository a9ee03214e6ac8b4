package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/beaconwatch/beaconwatch-core/internal/device"
	"github.com/beaconwatch/beaconwatch-core/internal/infrastructure/config"
	"github.com/beaconwatch/beaconwatch-core/internal/infrastructure/logging"
	"github.com/beaconwatch/beaconwatch-core/internal/monitor"
	"github.com/beaconwatch/beaconwatch-core/internal/sighting"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE monitors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			location TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			is_lease_holder INTEGER NOT NULL DEFAULT 0,
			lease_claimed_at TEXT,
			last_seen TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE TABLE devices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mac_address TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			first_seen TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			last_seen TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE TABLE staging_sightings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mac_address TEXT NOT NULL,
			device_name TEXT NOT NULL DEFAULT '',
			monitor_id INTEGER NOT NULL REFERENCES monitors(id),
			rssi INTEGER NOT NULL,
			interval_start TEXT NOT NULL,
			scan_timestamp TEXT NOT NULL,
			processed INTEGER NOT NULL DEFAULT 0
		) STRICT;
		CREATE TABLE finalized_sightings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id INTEGER NOT NULL REFERENCES devices(id),
			monitor_id INTEGER NOT NULL REFERENCES monitors(id),
			rssi INTEGER NOT NULL,
			interval_start TEXT NOT NULL,
			finalized_at TEXT NOT NULL,
			UNIQUE (device_id, interval_start)
		) STRICT;
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// okHealth always reports healthy.
type okHealth struct{}

func (okHealth) HealthCheck(ctx context.Context) error { return nil }

// newTestServer builds a server and router over the given database.
func newTestServer(t *testing.T, db *sql.DB) http.Handler {
	t.Helper()

	logger := &logging.Logger{Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))}
	srv, err := New(Deps{
		Config:   config.APIConfig{Enabled: true, Host: "127.0.0.1", Port: 0},
		Logger:   logger,
		Monitors: monitor.NewSQLiteRepository(db),
		Devices:  device.NewSQLiteRepository(db),
		Reporter: sighting.NewReporter(db),
		Health:   okHealth{},
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return srv.buildRouter()
}

// seed populates a monitor, two devices and recent finalized sightings.
func seed(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx := context.Background()

	m, err := monitor.NewSQLiteRepository(db).Register(ctx, monitor.Registration{Name: "garage-pi", Location: "garage"})
	if err != nil {
		t.Fatalf("seeding monitor: %v", err)
	}

	devices := device.NewSQLiteRepository(db)
	now := time.Now().UTC().Truncate(time.Second)
	tile, err := devices.Upsert(ctx, "AA:BB:CC:DD:EE:01", "tile", now)
	if err != nil {
		t.Fatalf("seeding device: %v", err)
	}
	airtag, err := devices.Upsert(ctx, "AA:BB:CC:DD:EE:02", "", now)
	if err != nil {
		t.Fatalf("seeding device: %v", err)
	}

	sightings := sighting.NewSQLiteRepository(db)
	window := now.Truncate(5 * time.Minute).Add(-10 * time.Minute)
	for i, f := range []sighting.Finalized{
		{DeviceID: tile.ID, MonitorID: m.ID, RSSI: -50},
		{DeviceID: airtag.ID, MonitorID: m.ID, RSSI: -70},
		{DeviceID: tile.ID, MonitorID: m.ID, RSSI: -55},
	} {
		f.IntervalStart = window.Add(time.Duration(i) * 5 * time.Minute)
		f.FinalizedAt = f.IntervalStart.Add(5 * time.Minute)
		if err := sightings.UpsertFinalized(ctx, f); err != nil {
			t.Fatalf("seeding finalized sighting: %v", err)
		}
	}
}

// get performs a GET against the router and decodes the JSON body.
func get(t *testing.T, router http.Handler, path string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decoding response for %s: %v", path, err)
		}
	}
	return rec.Code, body
}

func TestServer_Health(t *testing.T) {
	router := newTestServer(t, setupTestDB(t))

	status, body := get(t, router, "/api/v1/health")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestServer_ListMonitors(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)
	router := newTestServer(t, db)

	status, body := get(t, router, "/api/v1/monitors")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}

	monitors, ok := body["monitors"].([]any)
	if !ok || len(monitors) != 1 {
		t.Fatalf("monitors = %v, want one entry", body["monitors"])
	}
	first := monitors[0].(map[string]any)
	if first["name"] != "garage-pi" {
		t.Errorf("name = %v, want garage-pi", first["name"])
	}
	if first["sighting_count"].(float64) != 3 {
		t.Errorf("sighting_count = %v, want 3", first["sighting_count"])
	}
}

func TestServer_ListDevices(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)
	router := newTestServer(t, db)

	status, body := get(t, router, "/api/v1/devices")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["count"].(float64) != 2 {
		t.Errorf("count = %v, want 2", body["count"])
	}
}

func TestServer_RecentSightings(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)
	router := newTestServer(t, db)

	status, body := get(t, router, "/api/v1/sightings/recent?limit=2")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["count"].(float64) != 2 {
		t.Errorf("count = %v, want 2", body["count"])
	}

	sightings := body["sightings"].([]any)
	first := sightings[0].(map[string]any)
	if first["monitor_name"] != "garage-pi" {
		t.Errorf("monitor_name = %v, want garage-pi", first["monitor_name"])
	}
}

func TestServer_TopDevices(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)
	router := newTestServer(t, db)

	status, body := get(t, router, "/api/v1/sightings/top")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}

	devices := body["devices"].([]any)
	if len(devices) != 2 {
		t.Fatalf("devices = %v, want 2 entries", devices)
	}
	first := devices[0].(map[string]any)
	if first["mac_address"] != "AA:BB:CC:DD:EE:01" || first["sighting_count"].(float64) != 2 {
		t.Errorf("top device = %v, want AA:BB:CC:DD:EE:01 with 2", first)
	}
}

func TestServer_HourlyReport(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)
	router := newTestServer(t, db)

	status, body := get(t, router, "/api/v1/reports/hourly")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if _, ok := body["buckets"]; !ok {
		t.Error("response missing buckets")
	}
}

func TestServer_BadQueryParam(t *testing.T) {
	db := setupTestDB(t)
	router := newTestServer(t, db)

	status, body := get(t, router, "/api/v1/sightings/recent?limit=abc")
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if body["code"] != "bad_request" {
		t.Errorf("code = %v, want bad_request", body["code"])
	}

	status, _ = get(t, router, "/api/v1/monitors?hours=-4")
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for negative hours", status)
	}
}

func TestServer_RequestIDHeader(t *testing.T) {
	router := newTestServer(t, setupTestDB(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated X-Request-ID header")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-id-1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-id-1" {
		t.Errorf("X-Request-ID = %q, want client-id-1", got)
	}
}
