package api

import (
	"net/http"
	"strconv"
	"time"
)

// Query parameter defaults.
const (
	defaultStatsHours  = 24
	defaultRecentLimit = 20
	defaultTopLimit    = 10
	maxLimit           = 500
)

// handleHealth returns server status and store reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	if s.health != nil {
		if err := s.health.HealthCheck(r.Context()); err != nil {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			s.logger.Warn("health check failed", "error", err)
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":  status,
		"version": s.version,
	})
}

// handleListMonitors returns per-agent stats over a trailing window
// (?hours=, default 24).
func (s *Server) handleListMonitors(w http.ResponseWriter, r *http.Request) {
	hours, ok := queryInt(w, r, "hours", defaultStatsHours)
	if !ok {
		return
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	stats, err := s.reporter.MonitorStats(r.Context(), since)
	if err != nil {
		s.logger.Error("listing monitor stats failed", "error", err)
		writeInternalError(w, "failed to load monitor stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"monitors": stats,
		"hours":    hours,
	})
}

// handleListDevices returns every known device, most recently seen first.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.List(r.Context())
	if err != nil {
		s.logger.Error("listing devices failed", "error", err)
		writeInternalError(w, "failed to load devices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleRecentSightings returns the latest finalized sightings
// (?limit=, default 20).
func (s *Server) handleRecentSightings(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", defaultRecentLimit)
	if !ok {
		return
	}

	recent, err := s.reporter.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing recent sightings failed", "error", err)
		writeInternalError(w, "failed to load recent sightings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sightings": recent,
		"count":     len(recent),
	})
}

// handleTopDevices ranks devices by finalized sighting count
// (?hours=, default 24; ?limit=, default 10).
func (s *Server) handleTopDevices(w http.ResponseWriter, r *http.Request) {
	hours, ok := queryInt(w, r, "hours", defaultStatsHours)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", defaultTopLimit)
	if !ok {
		return
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	top, err := s.reporter.TopDevices(r.Context(), since, limit)
	if err != nil {
		s.logger.Error("listing top devices failed", "error", err)
		writeInternalError(w, "failed to load top devices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": top,
		"hours":   hours,
	})
}

// handleHourlyReport returns per-monitor per-hour aggregates
// (?hours=, default 24).
func (s *Server) handleHourlyReport(w http.ResponseWriter, r *http.Request) {
	hours, ok := queryInt(w, r, "hours", defaultStatsHours)
	if !ok {
		return
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	buckets, err := s.reporter.Hourly(r.Context(), since)
	if err != nil {
		s.logger.Error("hourly report failed", "error", err)
		writeInternalError(w, "failed to load hourly report")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"buckets": buckets,
		"hours":   hours,
	})
}

// queryInt parses a positive integer query parameter, writing a 400 and
// returning ok=false on bad input. Values above maxLimit are clamped.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		writeBadRequest(w, name+" must be a positive integer")
		return 0, false
	}
	if v > maxLimit {
		v = maxLimit
	}
	return v, true
}
