package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/beaconwatch/beaconwatch-core/internal/finalize"
	"github.com/beaconwatch/beaconwatch-core/internal/interval"
	"github.com/beaconwatch/beaconwatch-core/internal/monitor"
	"github.com/beaconwatch/beaconwatch-core/internal/scan"
	"github.com/beaconwatch/beaconwatch-core/internal/sighting"
)

// Publisher pushes a finalized window summary to downstream consumers.
// Implementations must be safe to call from the loop goroutine.
type Publisher interface {
	PublishFinalized(ctx context.Context, res finalize.Result) error
}

// SignalWriter records a raw observation to time-series storage. Writes
// are fire-and-forget; the loop never blocks on them.
type SignalWriter interface {
	WriteSignal(obs scan.Observation, agentName string)
}

// Options configure one agent loop.
type Options struct {
	// Registration is the identity announced every cycle.
	Registration monitor.Registration

	// Window is the consolidation interval length. Zero means the
	// default five minutes.
	Window time.Duration

	// ScanInterval is the full cycle length; ScanDuration is how long
	// the scanner listens within it.
	ScanInterval time.Duration
	ScanDuration time.Duration

	// ProcessIntervals opts this agent into lease eligibility.
	ProcessIntervals bool

	// GraceWait is how long the leader waits after the window boundary
	// before finalizing, letting slower peers land their batches.
	GraceWait time.Duration

	// ErrorBackoff is the pause after a failed cycle.
	ErrorBackoff time.Duration
}

// Loop is one agent's sequential scan/stage/finalize cycle.
type Loop struct {
	opts      Options
	monitors  monitor.Repository
	lease     *monitor.LeaseManager
	scanner   scan.Scanner
	sightings sighting.Repository
	finalizer *finalize.Finalizer
	logger    *slog.Logger

	// Optional sinks; nil disables them.
	publisher Publisher
	signals   SignalWriter

	now func() time.Time

	// self is the registered monitor row, refreshed each cycle.
	self *monitor.Monitor
}

// New creates an agent loop. The publisher and signal writer are optional
// and may be nil.
func New(
	opts Options,
	monitors monitor.Repository,
	lease *monitor.LeaseManager,
	scanner scan.Scanner,
	sightings sighting.Repository,
	finalizer *finalize.Finalizer,
	publisher Publisher,
	signals SignalWriter,
	logger *slog.Logger,
) *Loop {
	if opts.Window <= 0 {
		opts.Window = interval.DefaultWindow
	}
	return &Loop{
		opts:      opts,
		monitors:  monitors,
		lease:     lease,
		scanner:   scanner,
		sightings: sightings,
		finalizer: finalizer,
		publisher: publisher,
		signals:   signals,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes scan cycles until the context is cancelled, then releases
// the lease best-effort and returns nil. A failed cycle logs, backs off
// and continues; it never stops the loop.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("agent loop starting",
		"agent", l.opts.Registration.Name,
		"scan_interval", l.opts.ScanInterval.String(),
		"process_intervals", l.opts.ProcessIntervals,
	)

	for {
		cycleStart := l.now()

		if err := l.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			l.logger.Error("cycle failed, backing off",
				"error", err,
				"backoff", l.opts.ErrorBackoff.String(),
			)
			if !sleepCtx(ctx, l.opts.ErrorBackoff) {
				break
			}
			continue
		}

		remaining := l.opts.ScanInterval - l.now().Sub(cycleStart)
		if !sleepCtx(ctx, remaining) {
			break
		}
	}

	l.shutdown()
	return nil
}

// RunCycle executes exactly one cycle: register, scan, stage, and finalize
// if this agent wins (or already holds) the lease. Used directly for
// single-scan mode.
func (l *Loop) RunCycle(ctx context.Context) error {
	self, err := l.monitors.Register(ctx, l.opts.Registration)
	if err != nil {
		return fmt.Errorf("registering agent: %w", err)
	}
	l.self = self

	window := interval.Floor(l.now(), l.opts.Window)

	observations, err := l.scanner.Scan(ctx, l.opts.ScanDuration)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Scan failure degrades to an empty batch.
		l.logger.Warn("scan failed, staging nothing this cycle", "error", err)
		observations = nil
	}

	if len(observations) > 0 {
		if err := l.stage(ctx, window, observations); err != nil {
			return fmt.Errorf("staging observations: %w", err)
		}
	}
	l.logger.Debug("scan cycle staged",
		"window", window.Format(time.RFC3339),
		"observations", len(observations),
	)

	if !l.opts.ProcessIntervals {
		return nil
	}
	return l.finalizeAsLeader(ctx, window)
}

// stage writes a scan's observations tagged with the capture window, and
// mirrors them to the signal writer when one is configured.
func (l *Loop) stage(ctx context.Context, window time.Time, observations []scan.Observation) error {
	rows := make([]sighting.Staging, 0, len(observations))
	for _, obs := range observations {
		rows = append(rows, sighting.Staging{
			MACAddress:    obs.MACAddress,
			DeviceName:    obs.DeviceName,
			MonitorID:     l.self.ID,
			RSSI:          obs.RSSI,
			IntervalStart: window,
			ScanTimestamp: obs.CapturedAt,
		})
	}
	if err := l.sightings.StageBatch(ctx, rows); err != nil {
		return err
	}

	if l.signals != nil {
		for _, obs := range observations {
			l.signals.WriteSignal(obs, l.self.Name)
		}
	}
	return nil
}

// finalizeAsLeader claims the lease and, if this agent is the leader,
// drains every completed window. Losing the claim is not an error.
func (l *Loop) finalizeAsLeader(ctx context.Context, currentWindow time.Time) error {
	if err := l.lease.TryClaim(ctx); err != nil {
		if errors.Is(err, monitor.ErrLeaseHeldElsewhere) {
			l.logger.Debug("lease held elsewhere, staying follower")
			return nil
		}
		return fmt.Errorf("claiming lease: %w", err)
	}

	// Give slower peers time to land their batches for the window that
	// just closed.
	if !sleepCtx(ctx, l.opts.GraceWait) {
		return ctx.Err()
	}

	results, err := l.finalizer.CatchUp(ctx, currentWindow)
	if err != nil {
		return fmt.Errorf("finalizing completed windows: %w", err)
	}

	for _, res := range results {
		if res.Finalized == 0 || l.publisher == nil {
			continue
		}
		if err := l.publisher.PublishFinalized(ctx, res); err != nil {
			// Publishing is advisory; the window is already committed.
			l.logger.Warn("publishing finalized window failed",
				"window", res.Window.Format(time.RFC3339),
				"error", err,
			)
		}
	}

	if err := l.lease.Renew(ctx); err != nil {
		l.logger.Warn("lease renewal failed", "error", err)
	}
	return nil
}

// shutdown releases the lease so a peer can take over without waiting out
// the TTL. Best-effort with a short deadline; the run context is already
// cancelled.
func (l *Loop) shutdown() {
	if !l.opts.ProcessIntervals {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.lease.Release(ctx); err != nil {
		l.logger.Warn("releasing lease on shutdown failed", "error", err)
	}
}

// sleepCtx pauses for d, returning false if the context was cancelled
// first. Non-positive durations return true immediately.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
