// thermowatch - temperature sensor dashboard
//
// thermowatch accepts readings from battery-powered temperature/humidity
// sensors, stores them in InfluxDB, and serves a small dashboard that charts
// each sensor's mean temperature over the last 48 hours.
//
// Readings arrive as JSON over HTTP (POST /submit) or, when enabled, over
// MQTT. The database is reached through the DSN in AIVEN_INFLUX_DSN.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/thermowatch/thermowatch/internal/api"
	"github.com/thermowatch/thermowatch/internal/dashboard"
	"github.com/thermowatch/thermowatch/internal/infrastructure/config"
	"github.com/thermowatch/thermowatch/internal/infrastructure/influxdb"
	"github.com/thermowatch/thermowatch/internal/infrastructure/logging"
	"github.com/thermowatch/thermowatch/internal/infrastructure/mqtt"
	"github.com/thermowatch/thermowatch/internal/ingest"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting thermowatch",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Fail fast on a malformed DSN rather than on the first request.
	params, err := influxdb.ParseDSN(cfg.InfluxDB.DSN)
	if err != nil {
		return fmt.Errorf("parsing InfluxDB DSN: %w", err)
	}
	log.Info("InfluxDB configured", "dsn", params.String())

	connect := influxConnector(params, influxdb.Options{Timeout: cfg.GetInfluxTimeout()})

	renderer, err := dashboard.New(cfg.Dashboard.Dir, version)
	if err != nil {
		return fmt.Errorf("loading dashboard templates: %w", err)
	}

	// MQTT ingest is optional; mqttStatus stays a nil interface when disabled.
	var mqttStatus api.MQTTStatus
	if cfg.MQTT.Enabled {
		mqttClient, err := startIngest(ctx, cfg, connect, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttStatus = mqttClient
	}

	server, err := api.New(api.Deps{
		Config: cfg.API,
		Logger: log,
		Connect: func(ctx context.Context) (api.Store, error) {
			client, err := connect(ctx)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		Renderer: renderer,
		Static:   dashboard.Static(cfg.Dashboard.Dir),
		MQTT:     mqttStatus,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("thermowatch started", "address", server.Addr().String())

	<-ctx.Done()
	log.Info("shutdown signal received, stopping...")

	return nil
}

// influxConnector binds the parsed DSN into a function that opens one
// request-scoped client. Callers wrapping it in an interface return an
// untyped nil on failure.
func influxConnector(params influxdb.ConnectionParams, opts influxdb.Options) func(context.Context) (*influxdb.Client, error) {
	return func(ctx context.Context) (*influxdb.Client, error) {
		return influxdb.Connect(ctx, params, opts)
	}
}

// startIngest connects to the broker and subscribes the telemetry ingester.
func startIngest(ctx context.Context, cfg *config.Config, connect func(context.Context) (*influxdb.Client, error), log *logging.Logger) (*mqtt.Client, error) {
	mqttClient, err := mqtt.Connect(cfg.MQTT, log)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}

	ing := ingest.New(func(ctx context.Context) (ingest.Writer, error) {
		client, err := connect(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	}, log, cfg.GetInfluxTimeout())

	if err := ing.Start(ctx, mqttClient); err != nil {
		mqttClient.Close()
		return nil, fmt.Errorf("starting telemetry ingest: %w", err)
	}

	return mqttClient, nil
}

// getConfigPath returns the configuration file path.
// Checks THERMOWATCH_CONFIG environment variable first, then uses default.
func getConfigPath() string {
	if path := os.Getenv("THERMOWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
