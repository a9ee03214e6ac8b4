package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a temporary config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("loads minimal config with defaults", func(t *testing.T) {
		path := writeConfig(t, `
agent:
  name: garage-agent
  location: Garage
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Agent.Name != "garage-agent" {
			t.Errorf("Agent.Name = %q, want %q", cfg.Agent.Name, "garage-agent")
		}
		if cfg.Agent.ScanIntervalSeconds != 300 {
			t.Errorf("ScanIntervalSeconds = %d, want 300", cfg.Agent.ScanIntervalSeconds)
		}
		if cfg.Lease.TTLSeconds != 600 {
			t.Errorf("Lease.TTLSeconds = %d, want 600", cfg.Lease.TTLSeconds)
		}
		if cfg.LeaseTTL() != 600*time.Second {
			t.Errorf("LeaseTTL() = %v, want 600s", cfg.LeaseTTL())
		}
		if cfg.Database.Path == "" {
			t.Error("Database.Path should have a default")
		}
		if !cfg.Database.WALMode {
			t.Error("Database.WALMode should default to true")
		}
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfig(t, `
agent:
  name: hall-agent
  scan_interval_seconds: 120
  scan_duration_seconds: 8
  process_intervals: true
  grace_wait_seconds: 30
lease:
  ttl_seconds: 300
database:
  path: /tmp/bw.db
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if !cfg.Agent.ProcessIntervals {
			t.Error("ProcessIntervals = false, want true")
		}
		if cfg.ScanInterval() != 2*time.Minute {
			t.Errorf("ScanInterval() = %v, want 2m", cfg.ScanInterval())
		}
		if cfg.GraceWait() != 30*time.Second {
			t.Errorf("GraceWait() = %v, want 30s", cfg.GraceWait())
		}
		if cfg.Lease.TTLSeconds != 300 {
			t.Errorf("Lease.TTLSeconds = %d, want 300", cfg.Lease.TTLSeconds)
		}
	})

	t.Run("environment overrides file values", func(t *testing.T) {
		path := writeConfig(t, `
agent:
  name: file-name
database:
  path: /tmp/file.db
`)
		t.Setenv("BEACONWATCH_AGENT_NAME", "env-name")
		t.Setenv("BEACONWATCH_DATABASE_PATH", "/tmp/env.db")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Agent.Name != "env-name" {
			t.Errorf("Agent.Name = %q, want env override", cfg.Agent.Name)
		}
		if cfg.Database.Path != "/tmp/env.db" {
			t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("Load() expected error for missing file")
		}
	})

	t.Run("returns error for invalid yaml", func(t *testing.T) {
		path := writeConfig(t, "agent: [not a mapping")
		if _, err := Load(path); err == nil {
			t.Error("Load() expected error for invalid YAML")
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Agent.Name = "test-agent"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config passes",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "missing agent name",
			mutate:  func(c *Config) { c.Agent.Name = "" },
			wantErr: "agent.name is required",
		},
		{
			name:    "zero scan interval",
			mutate:  func(c *Config) { c.Agent.ScanIntervalSeconds = 0 },
			wantErr: "scan_interval_seconds",
		},
		{
			name: "scan duration longer than interval",
			mutate: func(c *Config) {
				c.Agent.ScanIntervalSeconds = 10
				c.Agent.ScanDurationSeconds = 20
			},
			wantErr: "shorter than",
		},
		{
			name:    "zero lease ttl",
			mutate:  func(c *Config) { c.Lease.TTLSeconds = 0 },
			wantErr: "lease.ttl_seconds",
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name: "invalid api port when enabled",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.Port = 0
			},
			wantErr: "api.port",
		},
		{
			name: "influxdb enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = ""
			},
			wantErr: "influxdb.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
