// Package api serves the visualization read surface.
//
// It exposes the series reader, the item registry, and system health
// over HTTP, plus a WebSocket endpoint speaking the smartVISU series
// protocol for frontends that stream chart updates.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aakso/smarthome-influxdb/internal/infrastructure/config"
	"github.com/aakso/smarthome-influxdb/internal/infrastructure/logging"
	"github.com/aakso/smarthome-influxdb/internal/item"
	"github.com/aakso/smarthome-influxdb/internal/series"
	"github.com/aakso/smarthome-influxdb/internal/spool"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by components the health endpoint probes.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Reader   *series.Reader
	Registry *item.Registry
	Queue    *spool.Queue
	Flusher  *spool.Flusher

	// Checks maps component names to health probes, reported by
	// GET /api/v1/system/health.
	Checks map[string]HealthChecker

	Version string
}

// Server is the HTTP API server for the bridge.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	reader   *series.Reader
	registry *item.Registry
	queue    *spool.Queue
	flusher  *spool.Flusher
	checks   map[string]HealthChecker
	version  string

	server *http.Server
	hub    *hub
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Reader == nil {
		return nil, fmt.Errorf("series reader is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("item registry is required")
	}
	if deps.Queue == nil {
		return nil, fmt.Errorf("write queue is required")
	}

	return &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger.With("component", "api"),
		reader:   deps.Reader,
		registry: deps.Registry,
		queue:    deps.Queue,
		flusher:  deps.Flusher,
		checks:   deps.Checks,
		version:  deps.Version,
		hub:      newHub(),
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// WebSocket clients are disconnected first, then the listener waits
// up to 10 seconds for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	s.hub.closeAll()

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
