// Package ingest stores telemetry that sensors publish over MQTT.
//
// Each message carries one record in the same JSON form accepted by
// POST /submit. A message is handled like an HTTP submission: parse, acquire
// a database connection, write the three points, release the connection.
// Nothing is retried; a message that cannot be stored is logged and dropped.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/thermowatch/thermowatch/internal/infrastructure/logging"
	"github.com/thermowatch/thermowatch/internal/infrastructure/mqtt"
	"github.com/thermowatch/thermowatch/internal/telemetry"
)

// defaultWriteTimeout bounds one message's connect and write.
const defaultWriteTimeout = 10 * time.Second

// ErrSensorMismatch is returned when a record names a different sensor than
// the per-sensor topic it arrived on.
var ErrSensorMismatch = errors.New("ingest: record name does not match topic")

// Writer is one message-scoped database connection.
// *influxdb.Client satisfies it.
type Writer interface {
	WritePoints(ctx context.Context, points ...*write.Point) error
	Close() error
}

// ConnectFunc acquires a Writer for one message. The caller closes it.
type ConnectFunc func(ctx context.Context) (Writer, error)

// Subscriber is the part of the MQTT client the ingester needs.
// *mqtt.Client satisfies it.
type Subscriber interface {
	SubscribeTelemetry(handler mqtt.TelemetryHandler) error
}

// Ingester writes MQTT telemetry messages to InfluxDB.
type Ingester struct {
	connect ConnectFunc
	logger  *logging.Logger
	timeout time.Duration
	ctx     context.Context
}

// New creates an Ingester. A zero timeout means 10 seconds.
func New(connect ConnectFunc, logger *logging.Logger, timeout time.Duration) *Ingester {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &Ingester{
		connect: connect,
		logger:  logger,
		timeout: timeout,
		ctx:     context.Background(),
	}
}

// Start registers HandleMessage as the telemetry handler. Messages are
// handled until ctx is cancelled; after that, writes in flight fail fast.
func (i *Ingester) Start(ctx context.Context, sub Subscriber) error {
	i.ctx = ctx
	if err := sub.SubscribeTelemetry(i.HandleMessage); err != nil {
		return fmt.Errorf("subscribing telemetry ingest: %w", err)
	}
	return nil
}

// HandleMessage stores one telemetry message. sensorID is the id from the
// topic, or empty when the topic carries none.
//
// The returned error is logged by the MQTT client; the message is not
// redelivered.
func (i *Ingester) HandleMessage(sensorID string, payload []byte) error {
	record, err := telemetry.ParseRecord(payload)
	if err != nil {
		return err
	}

	if sensorID != "" && sensorID != record.Name {
		return fmt.Errorf("%w: topic sensor %q, record %q", ErrSensorMismatch, sensorID, record.Name)
	}

	ctx, cancel := context.WithTimeout(i.ctx, i.timeout)
	defer cancel()

	if err := i.store(ctx, record); err != nil {
		return fmt.Errorf("storing telemetry from %s: %w", record.Name, err)
	}

	i.logger.Debug("telemetry stored",
		"sensor", record.Name,
		"time", record.Time(),
		"source", "mqtt",
	)
	return nil
}

func (i *Ingester) store(ctx context.Context, record telemetry.Record) error {
	w, err := i.connect(ctx)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil {
			i.logger.Warn("closing database connection", "error", closeErr)
		}
	}()

	return w.WritePoints(ctx, record.Points()...)
}
