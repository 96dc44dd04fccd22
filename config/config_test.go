package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 5*time.Second, cfg.Scan.Interval)
	assert.Equal(t, 3*time.Second, cfg.Scan.Window)
	assert.True(t, cfg.Scan.AllowDuplicates)
	assert.Equal(t, 5*time.Minute, cfg.History.Retention)
	assert.Equal(t, 60, cfg.History.Capacity)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Scan, cfg.Scan)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
demo: true
scan:
  interval: 10s
  window: 4s
  allow_duplicates: false
  service_filters:
    - 0000180f-0000-1000-8000-00805f9b34fb
history:
  retention: 2m
  capacity: 24
logger:
  level: debug
  format: json
mqtt:
  enabled: true
  broker: broker.local:1883
  topic: lab/ble
  qos: 0
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Demo)
	assert.Equal(t, 10*time.Second, cfg.Scan.Interval)
	assert.Equal(t, 4*time.Second, cfg.Scan.Window)
	assert.False(t, cfg.Scan.AllowDuplicates)
	assert.Equal(t, []string{"0000180f-0000-1000-8000-00805f9b34fb"}, cfg.Scan.ServiceFilters)
	assert.Equal(t, 2*time.Minute, cfg.History.Retention)
	assert.Equal(t, 24, cfg.History.Capacity)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, "stderr", cfg.Logger.Output, "unset fields keep defaults")
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "broker.local:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(0), cfg.MQTT.QoS)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan: [unclosed"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadRejectsWindowNotShorterThanInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan:\n  interval: 3s\n  window: 3s\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan.window must be shorter than scan.interval")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("BLEPROX_DEMO", "true")
	t.Setenv("BLEPROX_SCAN_INTERVAL", "8s")
	t.Setenv("BLEPROX_SCAN_WINDOW", "bogus")
	t.Setenv("BLEPROX_SCAN_SERVICE_FILTERS", " 180f , ,180a")
	t.Setenv("BLEPROX_LOGGER_LEVEL", "warn")
	t.Setenv("BLEPROX_TRACER_ENABLED", "true")
	t.Setenv("BLEPROX_TRACER_EXPORTER", "stdout")
	t.Setenv("BLEPROX_MQTT_ENABLED", "true")
	t.Setenv("BLEPROX_MQTT_BROKER", "10.0.0.2:1883")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	assert.True(t, cfg.Demo)
	assert.Equal(t, 8*time.Second, cfg.Scan.Interval)
	assert.Equal(t, 3*time.Second, cfg.Scan.Window, "unparseable duration is ignored")
	assert.Equal(t, []string{"180f", "180a"}, cfg.Scan.ServiceFilters)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.True(t, cfg.Tracer.Enabled)
	assert.Equal(t, "stdout", cfg.Tracer.Exporter)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "10.0.0.2:1883", cfg.MQTT.Broker)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero interval", func(c *Config) { c.Scan.Interval = 0 }, "scan.interval must be positive"},
		{"zero window", func(c *Config) { c.Scan.Window = 0 }, "scan.window must be positive"},
		{"zero capacity", func(c *Config) { c.History.Capacity = 0 }, "history.capacity must be positive"},
		{"zero retention", func(c *Config) { c.History.Retention = 0 }, "history.retention must be positive"},
		{"zero ttl", func(c *Config) { c.Session.DeviceTTL = 0 }, "session.device_ttl must be positive"},
		{"bad format", func(c *Config) { c.Logger.Format = "xml" }, `logger.format "xml"`},
		{"bad exporter", func(c *Config) { c.Tracer.Exporter = "jaeger" }, `tracer.exporter "jaeger"`},
		{"mqtt no broker", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.Broker = "" }, "mqtt.broker is required"},
		{"mqtt bad qos", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.QoS = 3 }, "mqtt.qos"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateDiscoveredBroker(t *testing.T) {
	cfg := Defaults()
	cfg.MQTT.Enabled = true
	cfg.MQTT.Broker = ""
	cfg.MQTT.Discover = true
	assert.NoError(t, Validate(cfg))
}

func TestReserveTerminal(t *testing.T) {
	cfg := Defaults()
	cfg.Logger.Output = "stderr"
	cfg.Tracer = TracerConfig{Enabled: true, Exporter: "stdout"}

	ReserveTerminal(cfg)
	assert.Equal(t, "discard", cfg.Logger.Output)
	assert.Equal(t, "noop", cfg.Tracer.Exporter)

	cfg.Logger.Output = "/var/log/bleproximity.log"
	ReserveTerminal(cfg)
	assert.Equal(t, "/var/log/bleproximity.log", cfg.Logger.Output)
}
