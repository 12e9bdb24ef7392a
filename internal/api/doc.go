// Package api implements the HTTP server for thermowatch.
//
// This package provides:
//   - GET / and GET /sensor/{sensorId}: the dashboard page
//   - POST /submit: one telemetry record, stored as three points
//   - GET /data/{deviceId}: the 48 hour mean temperature series as raw InfluxDB JSON
//   - GET /health: liveness, with ?deep=1 to ping the database
//   - /static/*: dashboard assets
//
// # Connections
//
// The server holds no database connection of its own. Every handler that
// needs one calls Deps.Connect, uses the result, and closes it before the
// response is finished, on success and failure alike.
//
// # Errors
//
// Failures are answered with the bare HTTP status phrase ("Bad Request",
// "Internal Server Error") as a text/html body. Details go to the log only.
package api
