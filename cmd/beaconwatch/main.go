// BeaconWatch - BLE beacon fleet monitoring agent.
//
// Each agent scans for BLE beacon advertisements, stages its sightings in
// the shared SQLite store and, when it holds the finalizer lease,
// consolidates each completed interval down to one best reading per
// device. An optional read-only HTTP dashboard, MQTT summaries and
// InfluxDB signal history ride on top of the core loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/beaconwatch/beaconwatch-core/migrations"

	"github.com/beaconwatch/beaconwatch-core/internal/agent"
	"github.com/beaconwatch/beaconwatch-core/internal/api"
	"github.com/beaconwatch/beaconwatch-core/internal/device"
	"github.com/beaconwatch/beaconwatch-core/internal/finalize"
	"github.com/beaconwatch/beaconwatch-core/internal/infrastructure/config"
	"github.com/beaconwatch/beaconwatch-core/internal/infrastructure/database"
	"github.com/beaconwatch/beaconwatch-core/internal/infrastructure/influxdb"
	"github.com/beaconwatch/beaconwatch-core/internal/infrastructure/logging"
	"github.com/beaconwatch/beaconwatch-core/internal/infrastructure/mqtt"
	"github.com/beaconwatch/beaconwatch-core/internal/monitor"
	"github.com/beaconwatch/beaconwatch-core/internal/scan"
	"github.com/beaconwatch/beaconwatch-core/internal/sighting"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// syntheticPoolSize is the fake beacon population for the synthetic scanner.
const syntheticPoolSize = 16

func main() {
	configPath := flag.String("config", getConfigPath(), "path to config.yaml")
	single := flag.Bool("single", false, "run one scan cycle and exit")
	flag.Parse()

	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *single); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Path to the YAML configuration file
//   - single: When true, run one scan cycle and exit
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string, single bool) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting BeaconWatch",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories over the shared store
	monitorRepo := monitor.NewSQLiteRepository(db.DB)
	deviceRepo := device.NewSQLiteRepository(db.DB)
	sightingRepo := sighting.NewSQLiteRepository(db.DB)

	lease := monitor.NewLeaseManager(monitorRepo, cfg.Agent.Name, cfg.LeaseTTL(), log.Logger)
	finalizer := finalize.New(db.DB, deviceRepo, sightingRepo, log.Logger)
	scanner := scan.NewSyntheticScanner(syntheticPoolSize, uint64(time.Now().UnixNano()))

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	var publisher agent.Publisher
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		publisher = mqtt.NewFinalizedPublisher(mqttClient, cfg.Agent.Name)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	var signals agent.SignalWriter
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		signals = influxdb.NewSignalWriter(influxClient)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the dashboard API (optional)
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log,
			Monitors: monitorRepo,
			Devices:  deviceRepo,
			Reporter: sighting.NewReporter(db.DB),
			Health:   db,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping dashboard API")
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("dashboard API disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	loop := agent.New(
		agent.Options{
			Registration: monitor.Registration{
				Name:        cfg.Agent.Name,
				Location:    cfg.Agent.Location,
				Description: cfg.Agent.Description,
			},
			ScanInterval:     cfg.ScanInterval(),
			ScanDuration:     cfg.ScanDuration(),
			ProcessIntervals: cfg.Agent.ProcessIntervals,
			GraceWait:        cfg.GraceWait(),
			ErrorBackoff:     cfg.ErrorBackoff(),
		},
		monitorRepo, lease, scanner, sightingRepo, finalizer, publisher, signals, log.Logger,
	)

	if single {
		log.Info("running single scan cycle")
		if err := loop.RunCycle(ctx); err != nil {
			return fmt.Errorf("single scan cycle: %w", err)
		}
		log.Info("single scan cycle complete")
		return nil
	}

	if err := loop.Run(ctx); err != nil {
		return fmt.Errorf("agent loop: %w", err)
	}

	log.Info("BeaconWatch stopped")
	return nil
}

// getConfigPath returns the default configuration file path.
// Uses the BEACONWATCH_CONFIG environment variable if set.
func getConfigPath() string {
	if path := os.Getenv("BEACONWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// Optional clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
