package handler

import (
	"log/slog"
	"net/http"

	"github.com/quantpulse/marketpulse/internal/domain"
)

// SnapshotHandler serves the current market snapshot.
type SnapshotHandler struct {
	source domain.SnapshotSource
	logger *slog.Logger
}

// NewSnapshotHandler creates a SnapshotHandler reading from source.
func NewSnapshotHandler(source domain.SnapshotSource, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{source: source, logger: logger}
}

// GetSnapshot responds with the current point-in-time market snapshot.
// GET /api/snapshot
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.Snapshot())
}

// Root responds with basic service identification.
// GET /
func (h *SnapshotHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "marketpulse",
		"version": "1.0.0",
		"status":  "running",
	})
}
