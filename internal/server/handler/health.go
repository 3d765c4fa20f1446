package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/quantpulse/marketpulse/internal/domain"
)

// HealthHandler serves the health-check endpoint, including feed staleness
// derived from the snapshot's last-update timestamp.
type HealthHandler struct {
	source  domain.SnapshotSource
	stateFn func() string
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler. stateFn reports the stream
// worker's current connection state.
func NewHealthHandler(source domain.SnapshotSource, stateFn func() string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{source: source, stateFn: stateFn, logger: logger}
}

// HealthCheck responds with the service status, worker state, processed
// data-point count, and seconds since the last successful update (null until
// the first update arrives).
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()

	var staleness *float64
	if snap.LastUpdate != nil {
		s := float64(time.Now().UnixNano())/1e9 - *snap.LastUpdate
		staleness = &s
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"worker_state":      h.stateFn(),
		"data_points":       snap.DataPoints,
		"last_update":       snap.LastUpdate,
		"staleness_seconds": staleness,
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	})
}
