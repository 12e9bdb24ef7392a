package api

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// SystemMetrics represents the complete metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	Telemetry     TelemetryMetrics `json:"telemetry"`
	MQTT          *MQTTMetrics     `json:"mqtt,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// TelemetryMetrics counts HTTP telemetry traffic since start.
type TelemetryMetrics struct {
	Submitted     uint64 `json:"submitted"`
	Rejected      uint64 `json:"rejected"`
	StoreFailures uint64 `json:"store_failures"`
	Queries       uint64 `json:"queries"`
	QueryFailures uint64 `json:"query_failures"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// counters are updated by the telemetry handlers.
type counters struct {
	submitted     atomic.Uint64
	rejected      atomic.Uint64
	storeFailures atomic.Uint64
	queries       atomic.Uint64
	queryFailures atomic.Uint64
}

func (c *counters) snapshot() TelemetryMetrics {
	return TelemetryMetrics{
		Submitted:     c.submitted.Load(),
		Rejected:      c.rejected.Load(),
		StoreFailures: c.storeFailures.Load(),
		Queries:       c.queries.Load(),
		QueryFailures: c.queryFailures.Load(),
	}
}

// handleMetrics returns process and traffic metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Telemetry: s.stats.snapshot(),
	}

	// MQTT metrics (if ingest is enabled)
	if s.mqtt != nil {
		metrics.MQTT = &MQTTMetrics{
			Connected: s.mqtt.IsConnected(),
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
