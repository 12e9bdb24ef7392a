package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, influxdb.ErrInvalidDSN) {
//	    // Refuse to start
//	}
var (
	// ErrInvalidDSN indicates the connection string could not be decoded.
	ErrInvalidDSN = errors.New("influxdb: invalid DSN")

	// ErrConnectionFailed indicates a client could not be created or the
	// server did not answer a ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrClosed indicates an operation on a client that was already released.
	ErrClosed = errors.New("influxdb: client closed")

	// ErrWriteFailed indicates a write operation failed.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrQueryFailed indicates a query was rejected or could not be executed.
	ErrQueryFailed = errors.New("influxdb: query failed")
)
