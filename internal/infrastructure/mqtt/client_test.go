package mqtt

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/beaconwatch/beaconwatch-core/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "beaconwatch-garage",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     60,
		},
	}
}

func TestBuildClientOptions(t *testing.T) {
	t.Run("plain tcp broker", func(t *testing.T) {
		opts := buildClientOptions(testConfig())

		if len(opts.Servers) != 1 {
			t.Fatalf("expected 1 broker, got %d", len(opts.Servers))
		}
		if got := opts.Servers[0].String(); got != "tcp://localhost:1883" {
			t.Errorf("broker URL = %q, want tcp://localhost:1883", got)
		}
		if opts.ClientID != "beaconwatch-garage" {
			t.Errorf("ClientID = %q", opts.ClientID)
		}
		if !opts.AutoReconnect {
			t.Error("expected auto-reconnect enabled")
		}
	})

	t.Run("tls switches scheme", func(t *testing.T) {
		cfg := testConfig()
		cfg.Broker.TLS = true
		opts := buildClientOptions(cfg)

		if got := opts.Servers[0].Scheme; got != "ssl" {
			t.Errorf("scheme = %q, want ssl", got)
		}
		if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
			t.Error("expected TLS config with minimum version set")
		}
	})

	t.Run("credentials applied when present", func(t *testing.T) {
		cfg := testConfig()
		cfg.Auth.Username = "agent"
		cfg.Auth.Password = "secret"
		opts := buildClientOptions(cfg)

		if opts.Username != "agent" || opts.Password != "secret" {
			t.Error("credentials not applied")
		}
	})
}

func TestTopics(t *testing.T) {
	if got := (Topics{}).SystemStatus(); got != "beaconwatch/system/status" {
		t.Errorf("SystemStatus = %q", got)
	}

	window := time.Date(2026, 8, 15, 12, 5, 0, 0, time.UTC)
	got := (Topics{}).Finalized(window)
	if got != "beaconwatch/finalized/2026-08-15T12-05-00Z" {
		t.Errorf("Finalized = %q", got)
	}
	if strings.Contains(got, ":") {
		t.Errorf("finalized topic contains a colon: %q", got)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{cfg: testConfig()}

	if err := c.Publish("", []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic: got %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("beaconwatch/test", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos: got %v, want ErrInvalidQoS", err)
	}
	if err := c.Publish("beaconwatch/test", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected: got %v, want ErrNotConnected", err)
	}
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("beaconwatch-garage")
	if !strings.Contains(online, `"status":"online"`) || !strings.Contains(online, "beaconwatch-garage") {
		t.Errorf("online payload = %s", online)
	}

	offline := buildOfflinePayload("beaconwatch-garage")
	if !strings.Contains(offline, `"reason":"graceful_shutdown"`) {
		t.Errorf("offline payload = %s", offline)
	}
}
