package telemetry

import (
	"testing"
	"time"

	"github.com/fyrsmithlabs/newsletter/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"disabled skips validation", func(c *Config) { c.Enabled = false; c.Endpoint = "" }, ""},
		{"defaults enabled", func(c *Config) { c.Enabled = true }, ""},
		{"missing endpoint", func(c *Config) { c.Enabled = true; c.Endpoint = "" }, "endpoint"},
		{"missing service name", func(c *Config) { c.Enabled = true; c.ServiceName = "" }, "service_name"},
		{"unknown protocol", func(c *Config) { c.Enabled = true; c.Protocol = "udp" }, "protocol"},
		{"insecure remote", func(c *Config) { c.Enabled = true; c.Endpoint = "collector.example.com:4317" }, "insecure"},
		{"secure remote", func(c *Config) {
			c.Enabled = true
			c.Endpoint = "collector.example.com:4317"
			c.Insecure = false
		}, ""},
		{"bad sampling rate", func(c *Config) { c.Enabled = true; c.Sampling.Rate = 1.5 }, "sampling.rate"},
		{"zero export interval", func(c *Config) { c.Enabled = true; c.Metrics.ExportInterval = 0 }, "export_interval"},
		{"zero shutdown timeout", func(c *Config) { c.Enabled = true; c.Shutdown.Timeout = 0 }, "shutdown.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_IsLocalEndpoint(t *testing.T) {
	local := []string{"localhost:4317", "127.0.0.1:4317", "127.1.2.3:4317", "[::1]:4317", "::1", "http://localhost:4318"}
	for _, ep := range local {
		assert.True(t, (&Config{Endpoint: ep}).isLocalEndpoint(), ep)
	}
	remote := []string{"collector:4317", "10.0.0.5:4317", "https://otel.example.com"}
	for _, ep := range remote {
		assert.False(t, (&Config{Endpoint: ep}).isLocalEndpoint(), ep)
	}
}

func TestConfigFromSettings(t *testing.T) {
	cfg := ConfigFromSettings(config.TelemetrySettings{
		Enabled:        true,
		Endpoint:       "localhost:4318",
		Protocol:       ProtocolHTTP,
		Insecure:       true,
		ServiceName:    "svc",
		ServiceVersion: "1.2.3",
		SamplingRate:   0.5,
		ExportInterval: config.Duration(time.Second),
	})
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.Equal(t, "svc", cfg.ServiceName)
	assert.InDelta(t, 0.5, cfg.Sampling.Rate, 0.0001)
	assert.Equal(t, time.Second, cfg.Metrics.ExportInterval.Duration())
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "otel:4318", stripScheme("https://otel:4318"))
	assert.Equal(t, "otel:4318", stripScheme("http://otel:4318"))
	assert.Equal(t, "otel:4317", stripScheme("otel:4317"))
}
