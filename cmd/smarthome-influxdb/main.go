// smarthome-influxdb bridges a smarthome item bus to InfluxDB.
//
// It subscribes to item state topics on MQTT, spools values through a
// bounded write queue, flushes them to InfluxDB in batches, and serves
// the stored series back to visualization frontends over HTTP and
// WebSocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/aakso/smarthome-influxdb/migrations"

	"github.com/aakso/smarthome-influxdb/internal/api"
	"github.com/aakso/smarthome-influxdb/internal/infrastructure/config"
	"github.com/aakso/smarthome-influxdb/internal/infrastructure/database"
	"github.com/aakso/smarthome-influxdb/internal/infrastructure/influxdb"
	"github.com/aakso/smarthome-influxdb/internal/infrastructure/logging"
	"github.com/aakso/smarthome-influxdb/internal/infrastructure/mqtt"
	"github.com/aakso/smarthome-influxdb/internal/ingest"
	"github.com/aakso/smarthome-influxdb/internal/item"
	"github.com/aakso/smarthome-influxdb/internal/series"
	"github.com/aakso/smarthome-influxdb/internal/spool"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting smarthome-influxdb",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the item registry database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Reconcile the stored registry with the configured items
	registry, err := syncRegistry(ctx, db, cfg.Items)
	if err != nil {
		return fmt.Errorf("loading item registry: %w", err)
	}
	log.Info("item registry initialised", "items", registry.Count())

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB. The backend is mandatory: without it the
	// bridge has nowhere to write and nothing to read.
	influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if err != nil {
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	defer func() {
		log.Info("closing InfluxDB connection")
		if closeErr := influxClient.Close(); closeErr != nil {
			log.Error("error closing InfluxDB", "error", closeErr)
		}
	}()
	log.Info("InfluxDB connected",
		"host", fmt.Sprintf("%s:%d", cfg.InfluxDB.Host, cfg.InfluxDB.Port),
		"database", cfg.InfluxDB.Database,
	)

	// Write queue and flusher
	queue := spool.NewQueue(cfg.Queue.MaxSize)
	flusher := spool.NewFlusher(queue, influxClient, spool.FlusherConfig{
		Cycle:        cfg.GetFlushCycle(),
		BatchSize:    cfg.Queue.BatchSize,
		WriteTimeout: cfg.GetWriteTimeout(),
	})
	flusher.SetLogger(log.With("component", "flusher"))
	flusher.Start()
	defer func() {
		log.Info("stopping flusher")
		flusher.Stop()
	}()
	log.Info("flusher started",
		"cycle", cfg.GetFlushCycle(),
		"batch_size", cfg.Queue.BatchSize,
		"queue_max", cfg.Queue.MaxSize,
	)

	// Item state ingestion
	ingestSvc := ingest.New(queue, registry, mqttClient, influxClient,
		mqttClient.Topics(), cfg.GetCollectCycle(), log)
	if err := ingestSvc.Start(ctx); err != nil {
		return fmt.Errorf("starting ingest: %w", err)
	}
	defer func() {
		log.Info("stopping ingest")
		if stopErr := ingestSvc.Stop(context.Background()); stopErr != nil {
			log.Error("error stopping ingest", "error", stopErr)
		}
	}()

	// API server for the visualization frontend
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Reader:   series.New(influxClient, log),
		Registry: registry,
		Queue:    queue,
		Flusher:  flusher,
		Checks: map[string]api.HealthChecker{
			"influxdb":    influxClient,
			"mqtt":        mqttClient,
			"registry_db": db,
		},
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server (stop accepting reads)
	// 2. Ingest (stop consuming, checkpoint registry)
	// 3. Flusher (final flush of remaining points)
	// 4. InfluxDB, MQTT, database

	log.Info("smarthome-influxdb stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SHINFLUX_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SHINFLUX_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// syncRegistry reconciles the SQLite registry with the configured
// items and loads the in-memory cache.
func syncRegistry(ctx context.Context, db *database.DB, items []config.ItemConfig) (*item.Registry, error) {
	configured := make([]item.Item, 0, len(items))
	for _, ic := range items {
		configured = append(configured, item.Item{
			Name: ic.Name,
			Mode: item.Mode(ic.Mode),
		})
	}

	repo := item.NewSQLiteRepository(db.DB)
	if err := repo.Sync(ctx, configured); err != nil {
		return nil, fmt.Errorf("syncing items: %w", err)
	}

	registry := item.NewRegistry(repo)
	if err := registry.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading registry cache: %w", err)
	}
	return registry, nil
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if err := influxClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("influxdb: %w", err)
	}
	return nil
}
