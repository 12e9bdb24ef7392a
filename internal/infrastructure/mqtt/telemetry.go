package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// TelemetryHandler receives one telemetry message.
//
// sensorID is taken from a thermowatch/sensors/{sensor_id}/telemetry topic
// and is empty when the configured topic does not follow that layout.
// A returned error is logged; the message is not redelivered.
type TelemetryHandler func(sensorID string, payload []byte) error

// SubscribeTelemetry subscribes handler to the configured telemetry topic at
// the configured QoS. The subscription is renewed after every reconnect.
// Only one handler is kept; a second call replaces the first.
func (c *Client) SubscribeTelemetry(handler TelemetryHandler) error {
	switch {
	case handler == nil:
		return ErrNoHandler
	case c.cfg.Topic == "":
		return ErrInvalidTopic
	case c.cfg.QoS < 0 || c.cfg.QoS > 2:
		return fmt.Errorf("%w: got %d", ErrInvalidQoS, c.cfg.QoS)
	case !c.IsConnected():
		return ErrNotConnected
	}

	c.mu.Lock()
	previous := c.handler
	c.handler = handler
	c.mu.Unlock()

	if err := c.subscribe(handler); err != nil {
		c.mu.Lock()
		c.handler = previous
		c.mu.Unlock()
		return err
	}

	c.logger.Info("telemetry ingest subscribed", "topic", c.cfg.Topic, "qos", c.cfg.QoS)
	return nil
}

func (c *Client) subscribe(handler TelemetryHandler) error {
	token := c.paho.Subscribe(c.cfg.Topic, byte(c.cfg.QoS), c.deliver(handler))
	if !token.WaitTimeout(ackTimeout) {
		return fmt.Errorf("%w: %s: no SUBACK within %v", ErrSubscribeFailed, c.cfg.Topic, ackTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, c.cfg.Topic, err)
	}
	return nil
}

// deliver adapts handler to a paho callback. Handler errors are logged as
// dropped messages and panics are recovered and logged.
func (c *Client) deliver(handler TelemetryHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		topic := msg.Topic()
		sensorID, _ := SensorIDFromTopic(topic)

		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("telemetry handler panicked",
					"topic", topic,
					"panic", r,
				)
			}
		}()

		if err := handler(sensorID, msg.Payload()); err != nil {
			c.logger.Warn("telemetry message dropped",
				"topic", topic,
				"sensor", sensorID,
				"error", err,
			)
		}
	}
}
