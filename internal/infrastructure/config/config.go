package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported transport backends.
const (
	BackendInfluxDB = "influxdb"
	BackendHTTP     = "http"
	BackendTCP      = "tcp"
	BackendMQTT     = "mqtt"
	BackendLog      = "log"
)

// Supported flush failure policies.
const (
	PolicyRequeue = "requeue"
	PolicyDrop    = "drop"
)

// Config is the root configuration structure for tsbuffer.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Target  TargetConfig  `yaml:"target"`
	Write   WriteConfig   `yaml:"write"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Journal JournalConfig `yaml:"journal"`
	Logging LoggingConfig `yaml:"logging"`
	Demo    DemoConfig    `yaml:"demo"`
}

// TargetConfig describes where flushed batches are delivered.
type TargetConfig struct {
	// Backend selects the transport: influxdb, http, tcp, mqtt or log.
	Backend string `yaml:"backend"`

	// URL is the server endpoint. For the tcp backend it is host:port.
	URL string `yaml:"url"`

	// Token is passed through opaquely as "Authorization: Token <token>".
	Token string `yaml:"token"`

	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`

	// Precision is the timestamp unit: ns, us, ms or s.
	Precision string `yaml:"precision"`

	// GZip compresses write payloads (influxdb and http backends).
	GZip bool `yaml:"gzip"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout"`

	// Topic is the MQTT topic batches are published to (mqtt backend only).
	Topic string `yaml:"topic"`
}

// WriteConfig controls write buffering.
type WriteConfig struct {
	// BatchSize triggers a flush once this many points are pending.
	BatchSize int `yaml:"batch_size"`

	// FlushInterval is the scheduled flush period in seconds. 0 disables the timer.
	FlushInterval int `yaml:"flush_interval"`

	// FailurePolicy is "requeue" (at-least-once) or "drop" (at-most-once).
	FailurePolicy string `yaml:"failure_policy"`

	// WriteTimeout bounds scheduled flushes, in seconds.
	WriteTimeout int `yaml:"write_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
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
}

// JournalConfig contains the SQLite flush journal settings.
type JournalConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// DemoConfig drives the "demo" command: the write-then-query scenario.
type DemoConfig struct {
	Measurement string `yaml:"measurement"`
	TagKey      string `yaml:"tag_key"`
	TagValue    string `yaml:"tag_value"`
	Field       string `yaml:"field"`
	Points      int    `yaml:"points"`

	// Interval is the spacing between submissions, in milliseconds.
	Interval int `yaml:"interval"`

	// Query overrides the generated aggregate Flux query.
	Query string `yaml:"query"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// An empty path skips step 2, so a deployment can be configured purely
// through TSBUFFER_* variables.
//
// Parameters:
//   - path: Path to the YAML configuration file (may be empty)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config matching a local InfluxDB v2 development server.
func defaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			Backend:   BackendInfluxDB,
			URL:       "http://localhost:8086",
			Precision: "ns",
			Timeout:   5,
			Topic:     "tsbuffer/lines",
		},
		Write: WriteConfig{
			BatchSize:     1000,
			FlushInterval: 5,
			FailurePolicy: PolicyRequeue,
			WriteTimeout:  5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "tsbuffer",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Journal: JournalConfig{
			Path:        "./data/journal.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/tsbuffer.log",
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
		Demo: DemoConfig{
			Measurement: "measurement1",
			TagKey:      "tagname1",
			TagValue:    "tagvalue1",
			Field:       "field1",
			Points:      5,
			Interval:    1000,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TSBUFFER_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Target
	if v := os.Getenv("TSBUFFER_TARGET_URL"); v != "" {
		cfg.Target.URL = v
	}
	if v := os.Getenv("TSBUFFER_TARGET_TOKEN"); v != "" {
		cfg.Target.Token = v
	}
	if v := os.Getenv("TSBUFFER_TARGET_ORG"); v != "" {
		cfg.Target.Org = v
	}
	if v := os.Getenv("TSBUFFER_TARGET_BUCKET"); v != "" {
		cfg.Target.Bucket = v
	}

	// MQTT
	if v := os.Getenv("TSBUFFER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TSBUFFER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Journal
	if v := os.Getenv("TSBUFFER_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}

	// Logging
	if v := os.Getenv("TSBUFFER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	switch c.Target.Backend {
	case BackendInfluxDB:
		if c.Target.URL == "" {
			errs = append(errs, "target.url is required")
		}
		if c.Target.Org == "" {
			errs = append(errs, "target.org is required for the influxdb backend")
		}
		if c.Target.Bucket == "" {
			errs = append(errs, "target.bucket is required for the influxdb backend")
		}
	case BackendHTTP, BackendTCP:
		if c.Target.URL == "" {
			errs = append(errs, "target.url is required")
		}
	case BackendMQTT:
		if c.Target.Topic == "" {
			errs = append(errs, "target.topic is required for the mqtt backend")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	case BackendLog:
	default:
		errs = append(errs, fmt.Sprintf("target.backend %q is not one of influxdb, http, tcp, mqtt, log", c.Target.Backend))
	}

	switch c.Target.Precision {
	case "ns", "us", "ms", "s":
	default:
		errs = append(errs, "target.precision must be ns, us, ms, or s")
	}

	if c.Write.BatchSize < 1 {
		errs = append(errs, "write.batch_size must be at least 1")
	}
	if c.Write.FlushInterval < 0 {
		errs = append(errs, "write.flush_interval must not be negative")
	}
	if c.Write.FailurePolicy != PolicyRequeue && c.Write.FailurePolicy != PolicyDrop {
		errs = append(errs, "write.failure_policy must be requeue or drop")
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, "journal.path is required when the journal is enabled")
	}

	if strings.EqualFold(c.Logging.Output, "file") && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required for file output")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetFlushInterval returns the scheduled flush period. Zero disables the timer.
func (c *Config) GetFlushInterval() time.Duration {
	return time.Duration(c.Write.FlushInterval) * time.Second
}

// GetWriteTimeout returns the timeout applied to scheduled flushes.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Write.WriteTimeout) * time.Second
}

// GetTargetTimeout returns the per-request transport timeout.
func (c *Config) GetTargetTimeout() time.Duration {
	return time.Duration(c.Target.Timeout) * time.Second
}

// GetDemoInterval returns the spacing between demo submissions.
func (c *Config) GetDemoInterval() time.Duration {
	return time.Duration(c.Demo.Interval) * time.Millisecond
}
