package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "tsbuffer.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
target:
  backend: influxdb
  url: "http://influx.local:8086"
  org: "Enserv Power"
  bucket: "test_with_Go"
  precision: ms
write:
  batch_size: 50
  flush_interval: 2
  failure_policy: drop
demo:
  points: 3
`)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://influx.local:8086", cfg.Target.URL)
	assert.Equal(t, "Enserv Power", cfg.Target.Org)
	assert.Equal(t, "test_with_Go", cfg.Target.Bucket)
	assert.Equal(t, "ms", cfg.Target.Precision)
	assert.Equal(t, 50, cfg.Write.BatchSize)
	assert.Equal(t, PolicyDrop, cfg.Write.FailurePolicy)
	assert.Equal(t, 3, cfg.Demo.Points)

	// Untouched sections keep their defaults
	assert.Equal(t, "measurement1", cfg.Demo.Measurement)
	assert.Equal(t, 1883, cfg.MQTT.Broker.Port)
}

func TestLoad_EmptyPathUsesEnvironment(t *testing.T) {
	t.Setenv("TSBUFFER_TARGET_ORG", "env-org")
	t.Setenv("TSBUFFER_TARGET_BUCKET", "env-bucket")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-org", cfg.Target.Org)
	assert.Equal(t, "env-bucket", cfg.Target.Bucket)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/tsbuffer.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
target:
  backend: influxdb
  org: ""
`)

	_, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target.org is required")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Target.Org = "org"
		cfg.Target.Bucket = "bucket"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid influxdb config",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Target.Backend = "kafka" },
			wantErr: "target.backend",
		},
		{
			name:    "influxdb without bucket",
			mutate:  func(c *Config) { c.Target.Bucket = "" },
			wantErr: "target.bucket",
		},
		{
			name: "http without org is allowed",
			mutate: func(c *Config) {
				c.Target.Backend = BackendHTTP
				c.Target.Org = ""
			},
		},
		{
			name: "tcp without url",
			mutate: func(c *Config) {
				c.Target.Backend = BackendTCP
				c.Target.URL = ""
			},
			wantErr: "target.url",
		},
		{
			name: "mqtt with invalid qos",
			mutate: func(c *Config) {
				c.Target.Backend = BackendMQTT
				c.MQTT.QoS = 3
			},
			wantErr: "mqtt.qos",
		},
		{
			name:   "log backend needs nothing",
			mutate: func(c *Config) { c.Target = TargetConfig{Backend: BackendLog, Precision: "s"} },
		},
		{
			name:    "invalid precision",
			mutate:  func(c *Config) { c.Target.Precision = "h" },
			wantErr: "target.precision",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Write.BatchSize = 0 },
			wantErr: "write.batch_size",
		},
		{
			name:    "negative flush interval",
			mutate:  func(c *Config) { c.Write.FlushInterval = -1 },
			wantErr: "write.flush_interval",
		},
		{
			name:    "unknown failure policy",
			mutate:  func(c *Config) { c.Write.FailurePolicy = "retry" },
			wantErr: "write.failure_policy",
		},
		{
			name: "journal enabled without path",
			mutate: func(c *Config) {
				c.Journal.Enabled = true
				c.Journal.Path = ""
			},
			wantErr: "journal.path",
		},
		{
			name: "file logging without path",
			mutate: func(c *Config) {
				c.Logging.Output = "file"
				c.Logging.File.Path = ""
			},
			wantErr: "logging.file.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
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

func TestConfig_Durations(t *testing.T) {
	cfg := &Config{
		Target: TargetConfig{Timeout: 7},
		Write:  WriteConfig{FlushInterval: 5, WriteTimeout: 3},
		Demo:   DemoConfig{Interval: 250},
	}

	assert.Equal(t, 5*time.Second, cfg.GetFlushInterval())
	assert.Equal(t, 3*time.Second, cfg.GetWriteTimeout())
	assert.Equal(t, 7*time.Second, cfg.GetTargetTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.GetDemoInterval())
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("TSBUFFER_TARGET_URL", "http://influx.example.com:8086")
	t.Setenv("TSBUFFER_TARGET_TOKEN", "secret-token")
	t.Setenv("TSBUFFER_TARGET_ORG", "org")
	t.Setenv("TSBUFFER_TARGET_BUCKET", "bucket")
	t.Setenv("TSBUFFER_MQTT_USERNAME", "testuser")
	t.Setenv("TSBUFFER_MQTT_PASSWORD", "testpass")
	t.Setenv("TSBUFFER_JOURNAL_PATH", "/custom/journal.db")
	t.Setenv("TSBUFFER_LOG_LEVEL", "debug")

	applyEnvOverrides(cfg)

	assert.Equal(t, "http://influx.example.com:8086", cfg.Target.URL)
	assert.Equal(t, "secret-token", cfg.Target.Token)
	assert.Equal(t, "org", cfg.Target.Org)
	assert.Equal(t, "bucket", cfg.Target.Bucket)
	assert.Equal(t, "testuser", cfg.MQTT.Auth.Username)
	assert.Equal(t, "testpass", cfg.MQTT.Auth.Password)
	assert.Equal(t, "/custom/journal.db", cfg.Journal.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, BackendInfluxDB, cfg.Target.Backend)
	assert.Equal(t, "ns", cfg.Target.Precision)
	assert.Equal(t, PolicyRequeue, cfg.Write.FailurePolicy)
	assert.Equal(t, 5, cfg.Demo.Points)
	assert.Equal(t, 1000, cfg.Demo.Interval)
	assert.False(t, cfg.Journal.Enabled)
}
