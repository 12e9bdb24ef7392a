package influxdb

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Default timeouts for InfluxDB operations.
const (
	defaultTimeout     = 10 * time.Second
	defaultPingTimeout = 5 * time.Second

	// tlsMinVersion is the minimum TLS version for database connections.
	tlsMinVersion = tls.VersionTLS12
)

// Options tunes a Client beyond what the DSN carries.
type Options struct {
	// Timeout bounds every HTTP exchange with the server. Zero means 10s.
	Timeout time.Duration

	// HTTPClient replaces the client built from Timeout (tests).
	HTTPClient *http.Client
}

// Client is a single, exclusively owned connection to InfluxDB.
//
// A Client is created per unit of work (one HTTP request, one MQTT
// message) and released with Close when that work ends. It talks to
// InfluxDB 1.8+ through the v2 compatibility write endpoint and the v1
// /query endpoint.
//
// Thread Safety: a Client is not shared between requests, but Close is
// safe to call more than once.
type Client struct {
	params     ConnectionParams
	client     influxdb2.Client
	writeAPI   api.WriteAPIBlocking
	httpClient *http.Client

	closeOnce sync.Once
	closed    bool
	mu        sync.RWMutex
}

// Connect creates a client for the database described by params.
//
// No network round-trip happens here; the first write or query surfaces
// reachability problems. Use Ping for an explicit check.
//
// Parameters:
//   - ctx: Context for cancellation; an already cancelled context fails fast
//   - params: Connection parameters, usually from ParseDSN
//   - opts: Timeouts and transport overrides
//
// Returns:
//   - *Client: Client ready for use; the caller must Close it
//   - error: ErrConnectionFailed if params are incomplete or ctx is done
func Connect(ctx context.Context, params ConnectionParams, opts Options) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if params.Host == "" || params.Port == 0 {
		return nil, fmt.Errorf("%w: missing host or port", ErrConnectionFailed)
	}
	if params.Database == "" {
		return nil, fmt.Errorf("%w: missing database", ErrConnectionFailed)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(params, opts.Timeout)
	}

	client := influxdb2.NewClientWithOptions(
		params.BaseURL(),
		authToken(params),
		influxdb2.DefaultOptions().SetHTTPClient(httpClient),
	)

	return &Client{
		params: params,
		client: client,
		// InfluxDB 1.8 maps the bucket onto database[/retention-policy];
		// the organisation is ignored.
		writeAPI:   client.WriteAPIBlocking("", params.Database),
		httpClient: httpClient,
	}, nil
}

// newHTTPClient builds the transport shared by writes and queries.
func newHTTPClient(params ConnectionParams, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if params.UseTLS {
		transport.TLSClientConfig = &tls.Config{
			MinVersion: tlsMinVersion,
			ServerName: params.Host,
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// authToken builds the v1 compatibility token "username:password".
func authToken(params ConnectionParams) string {
	if params.Username == "" {
		return ""
	}
	return params.Username + ":" + params.Password
}

// Close releases the client and its idle connections.
//
// Returns:
//   - error: nil (the underlying client Close doesn't return errors)
func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.client.Close()
		c.httpClient.CloseIdleConnections()
	})

	return nil
}

// Ping verifies the InfluxDB server is reachable and healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error wrapping ErrConnectionFailed otherwise
func (c *Client) Ping(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(pingCtx)
	if err != nil {
		return fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		return fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	return nil
}

// Params returns the connection parameters the client was built from.
func (c *Client) Params() ConnectionParams {
	return c.params
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
