package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/thermowatch/thermowatch/internal/telemetry"
)

// contentTypeJSON is the only media type /submit accepts. The comparison is
// exact; parameters such as charset are rejected.
const contentTypeJSON = "application/json"

// handleSubmit accepts one telemetry record and writes its three points.
//
// Responses:
//   - 200 {} once all points are stored
//   - 415 when the Content-Type is not exactly application/json
//   - 400 when the body is not a valid telemetry record
//   - 413 when the body exceeds the request size limit
//   - 500 when the database cannot be reached or rejects the write
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != contentTypeJSON {
		s.stats.rejected.Add(1)
		writeStatus(w, http.StatusUnsupportedMediaType)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.stats.rejected.Add(1)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeStatus(w, http.StatusRequestEntityTooLarge)
			return
		}
		writeStatus(w, http.StatusBadRequest)
		return
	}

	record, err := telemetry.ParseRecord(body)
	if err != nil {
		s.stats.rejected.Add(1)
		s.logger.Debug("rejected telemetry submission",
			"error", err,
			"request_id", requestID(r.Context()),
		)
		writeStatus(w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	err = s.withStore(ctx, func(store Store) error {
		return store.WritePoints(ctx, record.Points()...)
	})
	if err != nil {
		s.stats.storeFailures.Add(1)
		s.logger.Error("storing telemetry",
			"error", err,
			"sensor", record.Name,
			"request_id", requestID(ctx),
		)
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	s.stats.submitted.Add(1)
	s.logger.Debug("telemetry stored",
		"sensor", record.Name,
		"time", record.Time(),
		"request_id", requestID(ctx),
	)
	writeJSON(w, http.StatusOK, struct{}{})
}

// handleData returns the 48 hour mean temperature series for a sensor,
// exactly as InfluxDB produced it.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	id, ok := sensorIDParam(r, "deviceId")
	if !ok {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	query := telemetry.MeanTemperatureQuery(id)
	s.stats.queries.Add(1)

	var result json.RawMessage
	err := s.withStore(ctx, func(store Store) error {
		var queryErr error
		result, queryErr = store.Query(ctx, query)
		return queryErr
	})
	if err != nil {
		s.stats.queryFailures.Add(1)
		s.logger.Error("querying temperature series",
			"error", err,
			"sensor", id,
			"request_id", requestID(ctx),
		)
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	writeRawJSON(w, http.StatusOK, result)
}
