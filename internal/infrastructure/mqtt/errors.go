package mqtt

import "errors"

// Errors returned by the broker session. Match them with errors.Is.
var (
	// ErrNotConnected means the session is down, either before the first
	// connect or while auto-reconnect is retrying.
	ErrNotConnected = errors.New("mqtt: not connected to broker")

	// ErrConnectionFailed means the broker did not accept the first connect.
	ErrConnectionFailed = errors.New("mqtt: broker connection failed")

	// ErrSubscribeFailed means the broker refused or never acknowledged the
	// telemetry subscription.
	ErrSubscribeFailed = errors.New("mqtt: telemetry subscription failed")

	// ErrNoHandler is returned by SubscribeTelemetry for a nil handler.
	ErrNoHandler = errors.New("mqtt: telemetry handler is nil")

	// ErrInvalidTopic is returned when the configured telemetry topic is empty.
	ErrInvalidTopic = errors.New("mqtt: telemetry topic is empty")

	// ErrInvalidQoS is returned when the configured QoS is outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")
)
