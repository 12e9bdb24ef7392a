package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/thermowatch/thermowatch/internal/dashboard"
	"github.com/thermowatch/thermowatch/internal/infrastructure/config"
	"github.com/thermowatch/thermowatch/internal/infrastructure/influxdb"
	"github.com/thermowatch/thermowatch/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Store is one request-scoped connection to the time-series database.
// *influxdb.Client satisfies it.
type Store interface {
	WritePoints(ctx context.Context, points ...*write.Point) error
	Query(ctx context.Context, q influxdb.Query) (json.RawMessage, error)
	Ping(ctx context.Context) error
	Close() error
}

// ConnectFunc acquires a Store for the duration of one request. The caller
// owns the result and must Close it.
type ConnectFunc func(ctx context.Context) (Store, error)

// Renderer renders the dashboard page. *dashboard.Renderer satisfies it.
type Renderer interface {
	Render(w io.Writer, page dashboard.Page) error
}

// MQTTStatus reports the broker connection. *mqtt.Client satisfies it.
type MQTTStatus interface {
	IsConnected() bool
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Connect  ConnectFunc
	Renderer Renderer
	Static   http.Handler // optional; /static is not mounted when nil
	MQTT     MQTTStatus   // optional; nil when MQTT ingest is disabled
	Version  string
}

// Server is the HTTP server for thermowatch.
//
// It manages the HTTP listener, routes and middleware.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	connect  ConnectFunc
	renderer Renderer
	static   http.Handler
	mqtt     MQTTStatus
	version  string
	server   *http.Server
	addr     net.Addr

	startTime time.Time
	stats     counters
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Connect == nil {
		return nil, fmt.Errorf("database connect function is required")
	}
	if deps.Renderer == nil {
		return nil, fmt.Errorf("page renderer is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		connect:   deps.Connect,
		renderer:  deps.Renderer,
		static:    deps.Static,
		mqtt:      deps.MQTT,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Handler returns the fully wired HTTP handler (router plus middleware).
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listen address and serves HTTP in a background goroutine.
//
// Binding happens synchronously so that a port already in use is reported
// here rather than only logged.
//
// Parameters:
//   - ctx: Context for cancellation of the bind
//
// Returns:
//   - error: If the listener cannot be created
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.addr = listener.Addr()

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	s.logger.Info("API server starting", "address", s.addr.String())

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// withStore acquires a connection, runs fn, and releases the connection on
// every path, including a panic inside fn.
func (s *Server) withStore(ctx context.Context, fn func(Store) error) error {
	store, err := s.connect(ctx)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			s.logger.Warn("closing database connection", "error", closeErr)
		}
	}()

	return fn(store)
}
