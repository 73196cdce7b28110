package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the smarthome-influxdb bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Queue     QueueConfig     `yaml:"queue"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Items     []ItemConfig    `yaml:"items"`
}

// InfluxDBConfig contains InfluxDB connection settings.
//
// The bridge talks to InfluxDB 1.8+ through the v2 client compatibility
// mode: user/passwd become the token, database the bucket.
type InfluxDBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	Database string `yaml:"database"`
	SSL      bool   `yaml:"ssl"`

	// WriteTimeout bounds a single flush write call (seconds).
	WriteTimeout int `yaml:"write_timeout"`
}

// QueueConfig contains write queue and flush worker settings.
type QueueConfig struct {
	// MaxSize is the write queue capacity. On overflow the oldest
	// entries are dropped.
	MaxSize int `yaml:"write_queue_max_size"`

	// BatchSize is the maximum number of points drained per flush tick.
	BatchSize int `yaml:"batch_size"`

	// Cycle is the flush interval in seconds.
	Cycle int `yaml:"cycle"`

	// CollectCycle is the interval for re-enqueueing the current value
	// of every registered item (seconds). 0 disables collection.
	CollectCycle int `yaml:"collect_cycle"`
}

// MQTTConfig contains MQTT broker connection settings for the item bus.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
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

// APIConfig contains HTTP API server settings for the visualization frontend.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// DatabaseConfig contains SQLite item registry settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ItemConfig declares a single exported item.
//
// Mode controls when values are written: "true" writes the value on
// every change, "init" additionally writes
// the current value once at startup and restores the last stored value
// back onto the item bus.
type ItemConfig struct {
	Name string `yaml:"name"`
	Mode string `yaml:"mode"`
}

// Recognised item export modes.
const (
	ItemModeChange = "true"
	ItemModeInit   = "init"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SHINFLUX_SECTION_KEY
// For example: SHINFLUX_INFLUXDB_HOST, SHINFLUX_MQTT_PASSWORD
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		InfluxDB: InfluxDBConfig{
			Host:         "localhost",
			Port:         8086,
			Database:     "smarthome",
			WriteTimeout: 10,
		},
		Queue: QueueConfig{
			MaxSize:      1000,
			BatchSize:    500,
			Cycle:        120,
			CollectCycle: 300,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "smarthome-influxdb",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			TopicPrefix: "smarthome",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8089,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Database: DatabaseConfig{
			Path:        "./data/smarthome-influxdb.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SHINFLUX_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// InfluxDB
	if v := os.Getenv("SHINFLUX_INFLUXDB_HOST"); v != "" {
		cfg.InfluxDB.Host = v
	}
	if v := os.Getenv("SHINFLUX_INFLUXDB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.InfluxDB.Port = port
		}
	}
	if v := os.Getenv("SHINFLUX_INFLUXDB_USER"); v != "" {
		cfg.InfluxDB.User = v
	}
	if v := os.Getenv("SHINFLUX_INFLUXDB_PASSWD"); v != "" {
		cfg.InfluxDB.Passwd = v
	}
	if v := os.Getenv("SHINFLUX_INFLUXDB_DATABASE"); v != "" {
		cfg.InfluxDB.Database = v
	}

	// MQTT
	if v := os.Getenv("SHINFLUX_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SHINFLUX_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SHINFLUX_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("SHINFLUX_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Database
	if v := os.Getenv("SHINFLUX_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// InfluxDB validation - the backend is mandatory, a bridge without
	// a destination cannot start.
	if c.InfluxDB.Host == "" {
		errs = append(errs, "influxdb.host is required")
	}
	if c.InfluxDB.Port < 1 || c.InfluxDB.Port > 65535 {
		errs = append(errs, "influxdb.port must be between 1 and 65535")
	}
	if c.InfluxDB.Database == "" {
		errs = append(errs, "influxdb.database is required")
	}

	// Queue validation
	if c.Queue.MaxSize < 1 {
		errs = append(errs, "queue.write_queue_max_size must be positive")
	}
	if c.Queue.BatchSize < 1 {
		errs = append(errs, "queue.batch_size must be positive")
	}
	if c.Queue.Cycle < 1 {
		errs = append(errs, "queue.cycle must be positive")
	}
	if c.Queue.CollectCycle < 0 {
		errs = append(errs, "queue.collect_cycle must not be negative")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// Item validation - unknown modes are a configuration error, not
	// something to discover at flush time.
	for _, item := range c.Items {
		if item.Name == "" {
			errs = append(errs, "items[].name is required")
			continue
		}
		if item.Mode != ItemModeChange && item.Mode != ItemModeInit {
			errs = append(errs, fmt.Sprintf("items[%s].mode must be %q or %q", item.Name, ItemModeChange, ItemModeInit))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetWriteTimeout returns the InfluxDB write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.InfluxDB.WriteTimeout) * time.Second
}

// GetFlushCycle returns the flush interval as a Duration.
func (c *Config) GetFlushCycle() time.Duration {
	return time.Duration(c.Queue.Cycle) * time.Second
}

// GetCollectCycle returns the item collection interval as a Duration.
func (c *Config) GetCollectCycle() time.Duration {
	return time.Duration(c.Queue.CollectCycle) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeoutAPI returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeoutAPI() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
