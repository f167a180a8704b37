package handlers

import (
	"errors"
	"net/http"

	"github.com/wonny/yieldpilot/internal/engine"
	"github.com/wonny/yieldpilot/pkg/logger"
)

// YieldHandler handles yield pipeline API endpoints
// ⭐ SSOT: yield API handlers live in this struct only
type YieldHandler struct {
	coordinator *engine.Coordinator
	logger      *logger.Logger
}

// NewYieldHandler creates a new yield handler
func NewYieldHandler(coordinator *engine.Coordinator, log *logger.Logger) *YieldHandler {
	return &YieldHandler{
		coordinator: coordinator,
		logger:      log,
	}
}

// GetStatus returns the coordinator processing state
// GET /api/yield/status
func (h *YieldHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.coordinator.Status())
}

// GetSnapshots returns the latest yield snapshot per basket
// GET /api/yield/snapshots
func (h *YieldHandler) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snapshots, err := h.coordinator.LatestSnapshots(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get basket snapshots")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve basket snapshots")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
	})
}

// RunCycle triggers an aggregation cycle
// POST /api/yield/cycle
func (h *YieldHandler) RunCycle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.coordinator.RunCycle(ctx)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrCycleInProgress):
			respondError(w, http.StatusConflict, "A cycle is already in progress")
		case errors.Is(err, engine.ErrDataUnavailable):
			h.logger.WithError(err).Error("Cycle aborted, market data unavailable")
			respondError(w, http.StatusServiceUnavailable, "Market data unavailable")
		default:
			h.logger.WithError(err).Error("Cycle failed")
			respondError(w, http.StatusInternalServerError, "Cycle failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"result": result,
	})
}
