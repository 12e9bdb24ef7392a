package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"net"
	"strconv"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/thermowatch/thermowatch/internal/infrastructure/config"
)

const (
	// connectTimeout bounds the first connect and each reconnect attempt.
	connectTimeout = 10 * time.Second

	// ackTimeout bounds waiting for a SUBACK or PUBACK.
	ackTimeout = 5 * time.Second

	// disconnectQuiesce is how long Close lets in-flight work drain, in ms.
	disconnectQuiesce uint = 1000

	keepAlive = 60 * time.Second
)

// Values of the reason field in status messages.
const (
	reasonCrashed  = "unexpected_disconnect"
	reasonShutdown = "graceful_shutdown"
)

// brokerURL renders the paho server URL; ssl:// when TLS is on.
func brokerURL(b config.MQTTBrokerConfig) string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return scheme + "://" + net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

// sessionOptions maps the mqtt config section onto paho options: clean
// session, auto-reconnect with backoff between the configured delays, and a
// retained last will on StatusTopic.
func sessionOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetKeepAlive(keepAlive).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay)*time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay)*time.Second).
		SetWill(StatusTopic, string(encodeStatus(cfg.Broker.ClientID, false, reasonCrashed)), 1, true)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username).SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

// sessionStatus is the retained JSON body published on StatusTopic.
type sessionStatus struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// encodeStatus builds an online or offline status message stamped now.
func encodeStatus(clientID string, online bool, reason string) []byte {
	s := sessionStatus{
		Status:    "offline",
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if online {
		s.Status = "online"
	}
	//nolint:errcheck // a struct of strings always marshals
	b, _ := json.Marshal(s)
	return b
}
