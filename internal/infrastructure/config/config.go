package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for BeaconWatch Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Agent    AgentConfig    `yaml:"agent"`
	Lease    LeaseConfig    `yaml:"lease"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AgentConfig contains the identity and pacing of this monitor agent.
type AgentConfig struct {
	// Name uniquely identifies this agent across the fleet.
	// It doubles as the lease key, so it must be unique per deployment.
	Name        string `yaml:"name"`
	Location    string `yaml:"location"`
	Description string `yaml:"description"`

	// ScanIntervalSeconds is the full cycle length: one scan is started
	// every interval, and window starts are aligned to it.
	ScanIntervalSeconds int `yaml:"scan_interval_seconds"`

	// ScanDurationSeconds bounds a single radio scan.
	ScanDurationSeconds int `yaml:"scan_duration_seconds"`

	// ProcessIntervals opts this agent into lease eligibility. Only the
	// current lease holder consolidates intervals.
	ProcessIntervals bool `yaml:"process_intervals"`

	// GraceWaitSeconds is how long the lease holder waits after its own
	// scan before finalizing, so slower agents can land their staging rows.
	GraceWaitSeconds int `yaml:"grace_wait_seconds"`

	// ErrorBackoffSeconds is the pause after an unexpected cycle error
	// before the loop resumes at Idle.
	ErrorBackoffSeconds int `yaml:"error_backoff_seconds"`
}

// LeaseConfig contains finalizer lease settings.
type LeaseConfig struct {
	// TTLSeconds is how long a lease stays fresh without a heartbeat.
	// A holder that has not renewed within the TTL is presumed dead and
	// its lease becomes reclaimable.
	TTLSeconds int `yaml:"ttl_seconds"`
}

// DatabaseConfig contains SQLite database settings for the shared store.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
// MQTT is optional; when disabled, finalized window summaries are not published.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
// InfluxDB is optional; when enabled, every staged observation is also
// written as a signal-strength point for long-term history.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the read-only dashboard HTTP server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BEACONWATCH_SECTION_KEY
// For example: BEACONWATCH_DATABASE_PATH, BEACONWATCH_AGENT_NAME
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default timing constants (seconds).
const (
	defaultScanInterval = 300
	defaultScanDuration = 10
	defaultGraceWait    = 60
	defaultErrorBackoff = 60
	defaultLeaseTTL     = 600
)

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			ScanIntervalSeconds: defaultScanInterval,
			ScanDurationSeconds: defaultScanDuration,
			GraceWaitSeconds:    defaultGraceWait,
			ErrorBackoffSeconds: defaultErrorBackoff,
		},
		Lease: LeaseConfig{
			TTLSeconds: defaultLeaseTTL,
		},
		Database: DatabaseConfig{
			Path:        "./data/beaconwatch.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "beaconwatch-agent",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BEACONWATCH_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Agent identity
	if v := os.Getenv("BEACONWATCH_AGENT_NAME"); v != "" {
		cfg.Agent.Name = v
	}
	if v := os.Getenv("BEACONWATCH_AGENT_LOCATION"); v != "" {
		cfg.Agent.Location = v
	}

	// Database
	if v := os.Getenv("BEACONWATCH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("BEACONWATCH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BEACONWATCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BEACONWATCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("BEACONWATCH_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("BEACONWATCH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
// Startup fails loudly on anything reported here.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Agent validation - the name doubles as the lease key, so it is required.
	if c.Agent.Name == "" {
		errs = append(errs, "agent.name is required (set BEACONWATCH_AGENT_NAME environment variable)")
	}
	if c.Agent.ScanIntervalSeconds <= 0 {
		errs = append(errs, "agent.scan_interval_seconds must be positive")
	}
	if c.Agent.ScanDurationSeconds <= 0 {
		errs = append(errs, "agent.scan_duration_seconds must be positive")
	}
	if c.Agent.ScanDurationSeconds >= c.Agent.ScanIntervalSeconds {
		errs = append(errs, "agent.scan_duration_seconds must be shorter than agent.scan_interval_seconds")
	}
	if c.Agent.GraceWaitSeconds < 0 {
		errs = append(errs, "agent.grace_wait_seconds must not be negative")
	}

	// Lease validation
	if c.Lease.TTLSeconds <= 0 {
		errs = append(errs, "lease.ttl_seconds must be positive")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ScanInterval returns the scan cycle length as a Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Agent.ScanIntervalSeconds) * time.Second
}

// ScanDuration returns the bounded radio scan length as a Duration.
func (c *Config) ScanDuration() time.Duration {
	return time.Duration(c.Agent.ScanDurationSeconds) * time.Second
}

// GraceWait returns the pre-finalize grace delay as a Duration.
func (c *Config) GraceWait() time.Duration {
	return time.Duration(c.Agent.GraceWaitSeconds) * time.Second
}

// ErrorBackoff returns the post-error pause as a Duration.
func (c *Config) ErrorBackoff() time.Duration {
	return time.Duration(c.Agent.ErrorBackoffSeconds) * time.Second
}

// LeaseTTL returns the lease freshness window as a Duration.
func (c *Config) LeaseTTL() time.Duration {
	return time.Duration(c.Lease.TTLSeconds) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
