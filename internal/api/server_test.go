package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/thermowatch/thermowatch/internal/dashboard"
	"github.com/thermowatch/thermowatch/internal/infrastructure/config"
	"github.com/thermowatch/thermowatch/internal/infrastructure/influxdb"
	"github.com/thermowatch/thermowatch/internal/infrastructure/logging"
)

// fakeStore records what handlers do with a connection.
type fakeStore struct {
	mu       sync.Mutex
	points   []*write.Point
	queries  []influxdb.Query
	result   json.RawMessage
	writeErr error
	queryErr error
	pingErr  error
	closed   int
}

func (f *fakeStore) WritePoints(_ context.Context, points ...*write.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.points = append(f.points, points...)
	return nil
}

func (f *fakeStore) Query(_ context.Context, q influxdb.Query) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.result, nil
}

func (f *fakeStore) Ping(_ context.Context) error {
	return f.pingErr
}

func (f *fakeStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// fakeConnector hands out the same fakeStore and counts acquisitions.
type fakeConnector struct {
	mu       sync.Mutex
	store    *fakeStore
	err      error
	connects int
}

func (c *fakeConnector) connect(_ context.Context) (Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	if c.err != nil {
		return nil, c.err
	}
	return c.store, nil
}

// assertBalanced fails unless every acquired connection was closed.
func (c *fakeConnector) assertBalanced(t *testing.T, wantConnects int) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connects != wantConnects {
		t.Errorf("connects = %d, want %d", c.connects, wantConnects)
	}
	if c.err == nil && c.store.closed != c.connects {
		t.Errorf("closed = %d, want %d", c.store.closed, c.connects)
	}
}

type failingRenderer struct{}

func (failingRenderer) Render(io.Writer, dashboard.Page) error {
	return errors.New("template exploded")
}

// testServer creates a Server backed by the embedded dashboard templates and
// a fake database connection.
func testServer(t *testing.T, store *fakeStore) (*Server, *fakeConnector) {
	t.Helper()

	if store == nil {
		store = &fakeStore{}
	}
	conn := &fakeConnector{store: store}

	renderer, err := dashboard.New("", "test")
	if err != nil {
		t.Fatalf("dashboard.New() error: %v", err)
	}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		Logger:   logging.Discard(),
		Connect:  conn.connect,
		Renderer: renderer,
		Static:   dashboard.Static(""),
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return srv, conn
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

// ─── Construction ──────────────────────────────────────────────────

func TestNew_RequiresDeps(t *testing.T) {
	renderer, err := dashboard.New("", "test")
	if err != nil {
		t.Fatalf("dashboard.New() error: %v", err)
	}
	connect := func(context.Context) (Store, error) { return &fakeStore{}, nil }

	tests := []struct {
		name string
		deps Deps
	}{
		{name: "no logger", deps: Deps{Connect: connect, Renderer: renderer}},
		{name: "no connect", deps: Deps{Logger: logging.Discard(), Renderer: renderer}},
		{name: "no renderer", deps: Deps{Logger: logging.Discard(), Connect: connect}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() should fail")
			}
		})
	}
}

func TestStartAndClose(t *testing.T) {
	srv, _ := testServer(t, nil)

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	resp, err := http.Get("http://" + srv.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestStart_PortInUse(t *testing.T) {
	first, _ := testServer(t, nil)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { first.Close() })

	second, _ := testServer(t, nil)
	_, portStr, err := net.SplitHostPort(first.Addr().String())
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Atoi: %v", err)
	}
	second.cfg.Port = port

	if err := second.Start(context.Background()); err == nil {
		second.Close()
		t.Error("Start() on a bound port should fail")
	}
}

func TestClose_NotStarted(t *testing.T) {
	srv, _ := testServer(t, nil)
	if err := srv.Close(); err != nil {
		t.Errorf("Close() before Start() error: %v", err)
	}
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, conn := testServer(t, nil)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}

	// Shallow health never touches the database.
	conn.assertBalanced(t, 0)
}

func TestHealth_Deep(t *testing.T) {
	srv, conn := testServer(t, nil)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/health?deep=1", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	conn.assertBalanced(t, 1)
}

func TestHealth_DeepPingFails(t *testing.T) {
	srv, conn := testServer(t, &fakeStore{pingErr: errors.New("unreachable")})

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/health?deep=1", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if got := w.Body.String(); got != "Service Unavailable" {
		t.Errorf("body = %q, want %q", got, "Service Unavailable")
	}
	conn.assertBalanced(t, 1)
}

func TestHealth_DeepChecksMQTT(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		want      int
	}{
		{name: "connected", connected: true, want: http.StatusOK},
		{name: "disconnected", connected: false, want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConnector{store: &fakeStore{}}
			renderer, err := dashboard.New("", "test")
			if err != nil {
				t.Fatalf("dashboard.New() error: %v", err)
			}
			srv, err := New(Deps{
				Logger:   logging.Discard(),
				Connect:  conn.connect,
				Renderer: renderer,
				MQTT:     fakeMQTT{connected: tt.connected},
				Version:  "test",
			})
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}

			w := serve(srv, httptest.NewRequest(http.MethodGet, "/health?deep=1", nil))

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			conn.assertBalanced(t, 1)

			// Shallow health ignores the broker.
			w = serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
			if w.Code != http.StatusOK {
				t.Errorf("shallow status = %d, want %d", w.Code, http.StatusOK)
			}
		})
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv, _ := testServer(t, nil)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _ := testServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := serve(srv, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestRecovery(t *testing.T) {
	srv, _ := testServer(t, nil)

	handler := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if got := w.Body.String(); got != "Internal Server Error" {
		t.Errorf("body = %q, want %q", got, "Internal Server Error")
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := testServer(t, nil)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/nonexistent", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if got := w.Body.String(); got != "Not Found" {
		t.Errorf("body = %q, want %q", got, "Not Found")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, conn := testServer(t, nil)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/submit", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
	conn.assertBalanced(t, 0)
}

func TestStaticAssets(t *testing.T) {
	srv, _ := testServer(t, nil)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "/data/") {
		t.Error("app.js should fetch from /data/")
	}
}

// ─── Metrics Endpoint Tests ────────────────────────────────────────

type fakeMQTT struct{ connected bool }

func (f fakeMQTT) IsConnected() bool { return f.connected }

func (f fakeMQTT) HealthCheck(context.Context) error {
	if !f.connected {
		return errors.New("not connected")
	}
	return nil
}

func TestMetrics(t *testing.T) {
	srv, _ := testServer(t, &fakeStore{result: []byte(`{"results":[]}`)})
	router := srv.buildRouter()

	requests := []*http.Request{
		submitRequest(submitBody, "application/json"),
		submitRequest(submitBody, "text/plain"),
		submitRequest(`{}`, "application/json"),
		httptest.NewRequest(http.MethodGet, "/data/a4:c1:38:a7:a0:67", nil),
	}
	for _, req := range requests {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var metrics SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := TelemetryMetrics{Submitted: 1, Rejected: 2, Queries: 1}
	if metrics.Telemetry != want {
		t.Errorf("telemetry = %+v, want %+v", metrics.Telemetry, want)
	}
	if metrics.Version != "test" {
		t.Errorf("version = %q, want test", metrics.Version)
	}
	if metrics.Runtime.Goroutines <= 0 {
		t.Errorf("goroutines = %d, want > 0", metrics.Runtime.Goroutines)
	}
	if metrics.MQTT != nil {
		t.Error("mqtt metrics should be omitted when ingest is disabled")
	}
}

func TestMetrics_Failures(t *testing.T) {
	store := &fakeStore{writeErr: influxdb.ErrWriteFailed, queryErr: influxdb.ErrQueryFailed}
	srv, _ := testServer(t, store)
	router := srv.buildRouter()

	router.ServeHTTP(httptest.NewRecorder(), submitRequest(submitBody, "application/json"))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/data/a4:c1:38:a7:a0:67", nil))

	got := srv.stats.snapshot()
	want := TelemetryMetrics{StoreFailures: 1, Queries: 1, QueryFailures: 1}
	if got != want {
		t.Errorf("snapshot = %+v, want %+v", got, want)
	}
}

func TestMetrics_MQTT(t *testing.T) {
	renderer, err := dashboard.New("", "test")
	if err != nil {
		t.Fatalf("dashboard.New() error: %v", err)
	}
	srv, err := New(Deps{
		Logger:   logging.Discard(),
		Connect:  (&fakeConnector{store: &fakeStore{}}).connect,
		Renderer: renderer,
		MQTT:     fakeMQTT{connected: true},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var metrics SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if metrics.MQTT == nil || !metrics.MQTT.Connected {
		t.Errorf("mqtt = %+v, want connected", metrics.MQTT)
	}
}
