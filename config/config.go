package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Demo    bool          `yaml:"demo"`
	Scan    ScanConfig    `yaml:"scan"`
	History HistoryConfig `yaml:"history"`
	Session SessionConfig `yaml:"session"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
}

// ScanConfig controls the scan cycle cadence.
type ScanConfig struct {
	Interval        time.Duration `yaml:"interval"` // cycle cadence
	Window          time.Duration `yaml:"window"`   // discovery duration per cycle, must be < Interval
	AllowDuplicates bool          `yaml:"allow_duplicates"`
	ServiceFilters  []string      `yaml:"service_filters,omitempty"` // advertised service UUIDs; empty = all
}

// HistoryConfig bounds the chart time series.
type HistoryConfig struct {
	Retention time.Duration `yaml:"retention"`
	Capacity  int           `yaml:"capacity"`
}

// SessionConfig controls per-device tracking in the device table.
type SessionConfig struct {
	DeviceTTL time.Duration `yaml:"device_ttl"` // forget devices not seen for this long
}

// LoggerConfig holds structured logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json, text
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// TracerConfig holds OpenTelemetry settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// MQTTConfig configures the optional tally publisher.
type MQTTConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Broker    string        `yaml:"broker"`   // host:port
	Discover  bool          `yaml:"discover"` // find the broker via mDNS (_mqtt._tcp) when broker is empty
	ClientID  string        `yaml:"client_id"`
	Topic     string        `yaml:"topic"`
	QoS       byte          `yaml:"qos"`
	KeepAlive time.Duration `yaml:"keep_alive"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Scan: ScanConfig{
			Interval:        5 * time.Second,
			Window:          3 * time.Second,
			AllowDuplicates: true,
		},
		History: HistoryConfig{
			Retention: 5 * time.Minute,
			Capacity:  60,
		},
		Session: SessionConfig{
			DeviceTTL: 2 * time.Minute,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Exporter: "noop",
		},
		MQTT: MQTTConfig{
			Broker:    "localhost:1883",
			ClientID:  "bleproximity",
			Topic:     "bleproximity/tally",
			QoS:       1,
			KeepAlive: 30 * time.Second,
		},
	}
}

// Load reads a YAML config file on top of Defaults and applies env overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps BLEPROX_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BLEPROX_DEMO"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Demo = b
		}
	}
	if v := os.Getenv("BLEPROX_SCAN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Scan.Interval = d
		}
	}
	if v := os.Getenv("BLEPROX_SCAN_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Scan.Window = d
		}
	}
	if v := os.Getenv("BLEPROX_SCAN_SERVICE_FILTERS"); v != "" {
		cfg.Scan.ServiceFilters = splitAndTrim(v, ",")
	}
	if v := os.Getenv("BLEPROX_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("BLEPROX_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("BLEPROX_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("BLEPROX_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("BLEPROX_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("BLEPROX_MQTT_ENABLED"); v == "true" {
		cfg.MQTT.Enabled = true
	}
	if v := os.Getenv("BLEPROX_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("BLEPROX_MQTT_DISCOVER"); v == "true" {
		cfg.MQTT.Discover = true
	}
	if v := os.Getenv("BLEPROX_MQTT_TOPIC"); v != "" {
		cfg.MQTT.Topic = v
	}
}

// ReserveTerminal moves console-bound outputs off the terminal so they do
// not draw over the full-screen UI. Logs go to the configured file or are
// discarded; the stdout span exporter is replaced by noop.
func ReserveTerminal(cfg *Config) {
	switch cfg.Logger.Output {
	case "", "stderr", "stdout":
		cfg.Logger.Output = "discard"
	}
	if cfg.Tracer.Exporter == "stdout" {
		cfg.Tracer.Exporter = "noop"
	}
}

// Validate checks the configuration for values the scanner cannot run with.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Scan.Interval <= 0 {
		errs = append(errs, "scan.interval must be positive")
	}
	if cfg.Scan.Window <= 0 {
		errs = append(errs, "scan.window must be positive")
	}
	if cfg.Scan.Window >= cfg.Scan.Interval {
		errs = append(errs, "scan.window must be shorter than scan.interval")
	}
	if cfg.History.Retention <= 0 {
		errs = append(errs, "history.retention must be positive")
	}
	if cfg.History.Capacity <= 0 {
		errs = append(errs, "history.capacity must be positive")
	}
	if cfg.Session.DeviceTTL <= 0 {
		errs = append(errs, "session.device_ttl must be positive")
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "console", "json", "text", "":
	default:
		errs = append(errs, fmt.Sprintf("logger.format %q is not supported", cfg.Logger.Format))
	}
	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	default:
		errs = append(errs, fmt.Sprintf("tracer.exporter %q is not supported", cfg.Tracer.Exporter))
	}
	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" && !cfg.MQTT.Discover {
			errs = append(errs, "mqtt.broker is required when mqtt is enabled and discover is off")
		}
		if cfg.MQTT.Topic == "" {
			errs = append(errs, "mqtt.topic is required when mqtt is enabled")
		}
		if cfg.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1 or 2")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
