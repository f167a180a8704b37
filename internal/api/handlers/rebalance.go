package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/yieldpilot/internal/rebalance"
	"github.com/wonny/yieldpilot/pkg/logger"
)

// RebalanceHandler handles rebalance API endpoints
// ⭐ SSOT: rebalance API handlers live in this struct only
type RebalanceHandler struct {
	gate      *rebalance.Gate
	portfolio *rebalance.PortfolioRepository
	logger    *logger.Logger
}

// NewRebalanceHandler creates a new rebalance handler
func NewRebalanceHandler(gate *rebalance.Gate, portfolio *rebalance.PortfolioRepository, log *logger.Logger) *RebalanceHandler {
	return &RebalanceHandler{
		gate:      gate,
		portfolio: portfolio,
		logger:    log,
	}
}

// Evaluate evaluates the latest recommendation for one user and
// executes the swap when it clears the confidence gate
// POST /api/rebalance/{userID}
func (h *RebalanceHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := mux.Vars(r)["userID"]

	decision, err := h.gate.Evaluate(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, rebalance.ErrUserNotFound):
			respondError(w, http.StatusNotFound, "Unknown user")
		case errors.Is(err, rebalance.ErrNoRecommendation):
			respondError(w, http.StatusConflict, "No recommendation available yet")
		default:
			h.logger.WithError(err).WithField("user_id", userID).Error("Rebalance evaluation failed")
			respondError(w, http.StatusInternalServerError, "Rebalance evaluation failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, decision)
}

// GetBasket returns the user's basket-of-record
// GET /api/rebalance/{userID}/basket
func (h *RebalanceHandler) GetBasket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := mux.Vars(r)["userID"]

	basketID, err := h.portfolio.GetUserBasket(ctx, userID)
	if err != nil {
		if errors.Is(err, rebalance.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "Unknown user")
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to get user basket")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve user basket")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"userId":   userID,
		"basketId": basketID,
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
