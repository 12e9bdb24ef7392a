package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed)
	})

	// Dashboard pages
	r.Get("/", s.handleHome)
	r.Get("/sensor/{sensorId}", s.handleSensorPage)

	// Telemetry
	r.Post("/submit", s.handleSubmit)
	r.Get("/data/{deviceId}", s.handleData)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	if s.static != nil {
		r.Handle("/static/*", http.StripPrefix("/static", s.static))
	}

	return r
}

// handleHealth returns the server health status. With ?deep=1 it also
// pings the database through a request-scoped connection and, when ingest
// is enabled, checks the broker connection.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("deep") != "" {
		err := s.withStore(r.Context(), func(store Store) error {
			return store.Ping(r.Context())
		})
		if err != nil {
			s.logger.Warn("database health check failed",
				"error", err,
				"request_id", requestID(r.Context()),
			)
			writeStatus(w, http.StatusServiceUnavailable)
			return
		}
		if s.mqtt != nil {
			if err := s.mqtt.HealthCheck(r.Context()); err != nil {
				s.logger.Warn("mqtt health check failed",
					"error", err,
					"request_id", requestID(r.Context()),
				)
				writeStatus(w, http.StatusServiceUnavailable)
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
