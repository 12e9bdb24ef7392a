package api

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/thermowatch/thermowatch/internal/dashboard"
)

// handleHome renders the dashboard shell with no sensor selected.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, dashboard.Page{})
}

// handleSensorPage renders the dashboard for one sensor.
//
// The optional ?name= query parameter sets the display name; it defaults to
// the sensor id.
func (s *Server) handleSensorPage(w http.ResponseWriter, r *http.Request) {
	id, ok := sensorIDParam(r, "sensorId")
	if !ok {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	name := id
	if values, present := r.URL.Query()["name"]; present && len(values) > 0 {
		name = values[0]
	}

	s.renderPage(w, r, dashboard.Page{SensorID: id, SensorName: name})
}

// renderPage renders into a buffer first so a template failure can still
// produce a clean 500.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, page dashboard.Page) {
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, page); err != nil {
		s.logger.Error("rendering dashboard page",
			"error", err,
			"sensor_id", page.SensorID,
			"request_id", requestID(r.Context()),
		)
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	buf.WriteTo(w)
}

// sensorIDParam reads a sensor id path parameter and validates its shape.
// Clients may percent-encode the colons, so the raw value is unescaped first.
func sensorIDParam(r *http.Request, key string) (string, bool) {
	raw := chi.URLParam(r, key)
	id, err := url.PathUnescape(raw)
	if err != nil {
		return "", false
	}
	return id, validSensorID(id)
}
