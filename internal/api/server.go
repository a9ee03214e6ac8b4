// Package api provides the read-only HTTP dashboard for BeaconWatch.
//
// It exposes fleet status, the device registry and finalized sighting
// reports to dashboards and CLI tooling. All endpoints are GET; the write
// path belongs exclusively to the agent loop and finalizer.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/beaconwatch/beaconwatch-core/internal/device"
	"github.com/beaconwatch/beaconwatch-core/internal/infrastructure/config"
	"github.com/beaconwatch/beaconwatch-core/internal/infrastructure/logging"
	"github.com/beaconwatch/beaconwatch-core/internal/monitor"
	"github.com/beaconwatch/beaconwatch-core/internal/sighting"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker reports whether the shared store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Monitors monitor.Repository
	Devices  device.Repository
	Reporter *sighting.Reporter
	Health   HealthChecker
	Version  string
}

// Server is the dashboard HTTP server.
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	monitors monitor.Repository
	devices  device.Repository
	reporter *sighting.Reporter
	health   HealthChecker
	version  string
	server   *http.Server
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Monitors == nil || deps.Devices == nil || deps.Reporter == nil {
		return nil, fmt.Errorf("monitor, device and reporter dependencies are required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		monitors: deps.Monitors,
		devices:  deps.Devices,
		reporter: deps.Reporter,
		health:   deps.Health,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("dashboard API starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("dashboard API error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting for in-flight
// requests up to gracefulShutdownTimeout.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	s.logger.Info("dashboard API stopped")
	return nil
}
