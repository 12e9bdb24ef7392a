package mqtt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/thermowatch/thermowatch/internal/infrastructure/config"
)

// Logger is the subset of *logging.Logger and *slog.Logger the client uses.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Client is thermowatch's session with the MQTT broker.
//
// It keeps a retained status message on StatusTopic (online while
// connected, offline on shutdown or via the last will) and re-establishes
// the telemetry subscription after every reconnect. Methods are safe for
// concurrent use.
type Client struct {
	paho   pahomqtt.Client
	cfg    config.MQTTConfig
	logger Logger

	connected atomic.Bool

	mu      sync.Mutex
	handler TelemetryHandler
}

// Connect opens a session with the broker named in cfg.
//
// It blocks until the broker accepts the connection or connectTimeout
// passes. Once connected, paho reconnects on its own; the client logs each
// loss and recovery through logger. A nil logger discards them.
func Connect(cfg config.MQTTConfig, logger Logger) (*Client, error) {
	c := newClient(cfg, logger)

	token := c.paho.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// Stops the retry loop that SetConnectRetry started.
		c.paho.Disconnect(0)
		return nil, fmt.Errorf("%w: %s did not answer within %v", ErrConnectionFailed, brokerURL(cfg.Broker), connectTimeout)
	}
	if err := token.Error(); err != nil {
		c.paho.Disconnect(0)
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, brokerURL(cfg.Broker), err)
	}

	// The on-connect callback runs asynchronously; do not wait for it.
	c.connected.Store(true)
	c.logger.Info("MQTT connected",
		"broker", brokerURL(cfg.Broker),
		"client_id", cfg.Broker.ClientID,
	)
	return c, nil
}

// newClient wires the paho callbacks without dialling.
func newClient(cfg config.MQTTConfig, logger Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Client{cfg: cfg, logger: logger}

	opts := sessionOptions(cfg)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.sessionUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.sessionLost(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.logger.Warn("MQTT reconnecting", "broker", brokerURL(cfg.Broker))
	})
	c.paho = pahomqtt.NewClient(opts)
	return c
}

// sessionUp runs on every successful connect, the first one included.
func (c *Client) sessionUp() {
	c.connected.Store(true)

	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()

	// A clean session drops subscriptions, so a reconnect must renew it.
	if handler != nil {
		if err := c.subscribe(handler); err != nil {
			c.logger.Error("MQTT telemetry resubscribe failed", "topic", c.cfg.Topic, "error", err)
		} else {
			c.logger.Info("MQTT session restored, telemetry ingest resumed", "topic", c.cfg.Topic)
		}
	}

	c.paho.Publish(StatusTopic, byte(c.cfg.QoS), true, encodeStatus(c.cfg.Broker.ClientID, true, ""))
}

func (c *Client) sessionLost(err error) {
	c.connected.Store(false)
	c.logger.Warn("MQTT connection lost, telemetry ingest paused", "error", err)
}

// Close publishes a graceful offline status when connected and disconnects.
// It is safe on a nil client.
func (c *Client) Close() error {
	if c == nil || c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.paho.Publish(StatusTopic, byte(c.cfg.QoS), true,
			encodeStatus(c.cfg.Broker.ClientID, false, reasonShutdown))
		token.WaitTimeout(ackTimeout)
	}

	c.paho.Disconnect(disconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// IsConnected reports whether the session is currently up.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.paho.IsConnected()
}

// HealthCheck returns ErrNotConnected while the session is down, or the
// context error if ctx is already done.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}
