// Package logging provides structured logging for thermowatch.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the application.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 15000)
//	logger.Error("failed to write points", "error", err)
//
// Never log the InfluxDB DSN verbatim; use influxdb.ConnectionParams.String,
// which redacts the password.
package logging
