package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
influxdb:
  host: "influx.local"
  port: 8086
  user: "writer"
  passwd: "secret"
  database: "smarthome"
queue:
  write_queue_max_size: 500
  batch_size: 100
  cycle: 120
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
database:
  path: "/tmp/test.db"
items:
  - name: "living.temperature"
    mode: "true"
  - name: "living.humidity"
    mode: "init"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.InfluxDB.Host != "influx.local" {
		t.Errorf("InfluxDB.Host = %q, want %q", cfg.InfluxDB.Host, "influx.local")
	}
	if cfg.Queue.MaxSize != 500 {
		t.Errorf("Queue.MaxSize = %d, want 500", cfg.Queue.MaxSize)
	}
	if cfg.Queue.Cycle != 120 {
		t.Errorf("Queue.Cycle = %d, want 120", cfg.Queue.Cycle)
	}
	if len(cfg.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(cfg.Items))
	}
	if cfg.Items[1].Mode != ItemModeInit {
		t.Errorf("Items[1].Mode = %q, want %q", cfg.Items[1].Mode, ItemModeInit)
	}
}

func TestLoad_Defaults(t *testing.T) {
	// A minimal file should fall back to defaults for everything else.
	content := `
influxdb:
  host: "localhost"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Queue.MaxSize != 1000 {
		t.Errorf("default Queue.MaxSize = %d, want 1000", cfg.Queue.MaxSize)
	}
	if cfg.Queue.Cycle != 120 {
		t.Errorf("default Queue.Cycle = %d, want 120", cfg.Queue.Cycle)
	}
	if cfg.InfluxDB.Port != 8086 {
		t.Errorf("default InfluxDB.Port = %d, want 8086", cfg.InfluxDB.Port)
	}
	if cfg.InfluxDB.Database != "smarthome" {
		t.Errorf("default InfluxDB.Database = %q, want %q", cfg.InfluxDB.Database, "smarthome")
	}
	if cfg.MQTT.TopicPrefix != "smarthome" {
		t.Errorf("default MQTT.TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, "smarthome")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
influxdb:
  host: "file-host"
  passwd: "file-pass"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("SHINFLUX_INFLUXDB_HOST", "env-host")
	t.Setenv("SHINFLUX_INFLUXDB_PASSWD", "env-pass")
	t.Setenv("SHINFLUX_INFLUXDB_PORT", "9999")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.InfluxDB.Host != "env-host" {
		t.Errorf("InfluxDB.Host = %q, want env override %q", cfg.InfluxDB.Host, "env-host")
	}
	if cfg.InfluxDB.Passwd != "env-pass" {
		t.Errorf("InfluxDB.Passwd = %q, want env override %q", cfg.InfluxDB.Passwd, "env-pass")
	}
	if cfg.InfluxDB.Port != 9999 {
		t.Errorf("InfluxDB.Port = %d, want env override 9999", cfg.InfluxDB.Port)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "missing influxdb host",
			mutate:  func(c *Config) { c.InfluxDB.Host = "" },
			wantErr: "influxdb.host",
		},
		{
			name:    "missing database name",
			mutate:  func(c *Config) { c.InfluxDB.Database = "" },
			wantErr: "influxdb.database",
		},
		{
			name:    "invalid influxdb port",
			mutate:  func(c *Config) { c.InfluxDB.Port = 0 },
			wantErr: "influxdb.port",
		},
		{
			name:    "zero queue size",
			mutate:  func(c *Config) { c.Queue.MaxSize = 0 },
			wantErr: "write_queue_max_size",
		},
		{
			name:    "zero cycle",
			mutate:  func(c *Config) { c.Queue.Cycle = 0 },
			wantErr: "queue.cycle",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name: "unknown item mode",
			mutate: func(c *Config) {
				c.Items = []ItemConfig{{Name: "x", Mode: "sometimes"}}
			},
			wantErr: "mode",
		},
		{
			name: "item without name",
			mutate: func(c *Config) {
				c.Items = []ItemConfig{{Mode: "true"}}
			},
			wantErr: "items[].name",
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
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_DurationHelpers(t *testing.T) {
	cfg := defaultConfig()
	cfg.Queue.Cycle = 120
	cfg.Queue.CollectCycle = 300
	cfg.InfluxDB.WriteTimeout = 7

	if got := cfg.GetFlushCycle(); got != 120*time.Second {
		t.Errorf("GetFlushCycle() = %v, want 120s", got)
	}
	if got := cfg.GetCollectCycle(); got != 300*time.Second {
		t.Errorf("GetCollectCycle() = %v, want 300s", got)
	}
	if got := cfg.GetWriteTimeout(); got != 7*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want 7s", got)
	}
}
