package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/aakso/smarthome-influxdb/internal/infrastructure/config"
)

// Default timeouts for InfluxDB operations.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second
	defaultQueryTimeout   = 30 * time.Second
)

// measurementTpl is the backend measurement name for an item. It keeps
// the "smarthome.{item}" naming used by Smarthome.py installations so
// existing databases keep working unchanged.
const measurementTpl = "smarthome.%s"

// Client wraps the InfluxDB v2 client for use against InfluxDB 1.8+
// in v1 compatibility mode.
//
// Credentials follow the v1 convention from config.yaml: user/passwd
// become the token ("user:passwd") and the database name becomes the
// bucket. Writes are synchronous so callers observe failures directly;
// the retry policy lives in the spool package, not here.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	cfg      config.InfluxDBConfig

	connected bool
	mu        sync.RWMutex
}

// Connect establishes a connection to the InfluxDB server.
//
// It performs the following:
//  1. Builds the server URL and v1-compatibility token from config
//  2. Creates the client with millisecond write precision
//  3. Verifies connectivity and credentials with a ping
//
// A ping failure is fatal at startup: a bridge with an unreachable or
// misconfigured backend must not start.
//
// Parameters:
//   - ctx: Context for the connectivity check
//   - cfg: InfluxDB configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If the connection or credential check fails
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	scheme := "http"
	if cfg.SSL {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)

	// v1 compatibility: token is "user:passwd", empty without auth.
	token := ""
	if cfg.User != "" {
		token = fmt.Sprintf("%s:%s", cfg.User, cfg.Passwd)
	}

	writeTimeout := time.Duration(cfg.WriteTimeout) * time.Second
	if writeTimeout <= 0 {
		writeTimeout = defaultQueryTimeout
	}

	// #nosec G115 -- timeout validated above to be positive
	client := influxdb2.NewClientWithOptions(
		url,
		token,
		influxdb2.DefaultOptions().
			SetPrecision(time.Millisecond).
			SetHTTPRequestTimeout(uint(writeTimeout/time.Second)),
	)

	// Verify connectivity and credentials
	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrConnectionFailed, url, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	// v1 compatibility: org is unused, bucket is the database name.
	return &Client{
		client:    client,
		writeAPI:  client.WriteAPIBlocking("", cfg.Database),
		queryAPI:  client.QueryAPI(""),
		cfg:       cfg,
		connected: true,
	}, nil
}

// Close shuts down the InfluxDB connection.
//
// Pending work is the spool's concern; by the time Close runs the
// final flush has already happened.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.client.Close()
	return nil
}

// HealthCheck verifies the InfluxDB connection is alive and functioning.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}

	return nil
}

// IsConnected returns the current connection state.
//
// Note: This reflects the last known state. For reliability,
// use HealthCheck which performs an active ping.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Measurement returns the backend measurement name for an item.
func Measurement(item string) string {
	return fmt.Sprintf(measurementTpl, item)
}
