package telemetry

import "errors"

// ErrInvalidRecord indicates a telemetry payload is malformed or incomplete.
// The wrapped message names the offending field.
var ErrInvalidRecord = errors.New("telemetry: invalid record")
