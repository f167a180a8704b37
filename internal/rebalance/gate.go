package rebalance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/yieldpilot/internal/audit"
	"github.com/wonny/yieldpilot/internal/contracts"
	"github.com/wonny/yieldpilot/pkg/logger"
)

// ConfidenceThreshold is the fixed policy constant below which a
// differing recommendation does not trigger a swap. Deliberately not
// user-configurable.
const ConfidenceThreshold = 70

// ErrNoRecommendation is returned when a user is evaluated before any
// recommendation has been produced
var ErrNoRecommendation = errors.New("no recommendation available")

// Gate decides, per user, whether a recommendation should fire an
// automated reallocation. Rules are applied in order: same basket,
// confidence threshold, then trigger.
// ⭐ SSOT: the rebalance decision policy lives here only
type Gate struct {
	portfolio contracts.PortfolioRepository
	recs      contracts.RecommendationRepository
	swapper   contracts.SwapExecutor
	audit     contracts.AuditRecorder
	logger    *logger.Logger
}

// NewGate creates a rebalance decision gate
func NewGate(
	portfolio contracts.PortfolioRepository,
	recs contracts.RecommendationRepository,
	swapper contracts.SwapExecutor,
	audit contracts.AuditRecorder,
	log *logger.Logger,
) *Gate {
	return &Gate{
		portfolio: portfolio,
		recs:      recs,
		swapper:   swapper,
		audit:     audit,
		logger:    log,
	}
}

// Evaluate runs the decision gate for one user against the latest
// recommendation. The decision is ephemeral: it is audited, never
// stored as mutable state. The user's basket-of-record changes only
// after the swap backend reports success.
func (g *Gate) Evaluate(ctx context.Context, userID string) (*contracts.RebalanceDecision, error) {
	current, err := g.portfolio.GetUserBasket(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user basket: %w", err)
	}

	rec, err := g.recs.LatestRecommendation(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest recommendation: %w", err)
	}
	if rec == nil {
		return nil, ErrNoRecommendation
	}

	decision := g.EvaluateAgainst(ctx, userID, current, rec)
	return decision, nil
}

// EvaluateAgainst applies the gate rules for a known current basket and
// recommendation. Split out so cycle-driven evaluation can reuse it
// without a repository round-trip.
func (g *Gate) EvaluateAgainst(ctx context.Context, userID string, currentBasketID int, rec *contracts.Recommendation) *contracts.RebalanceDecision {
	decision := &contracts.RebalanceDecision{
		UserID:       userID,
		FromBasketID: currentBasketID,
		ToBasketID:   rec.BasketID,
		EvaluatedAt:  time.Now(),
	}

	switch {
	case rec.BasketID == currentBasketID:
		// Same basket wins regardless of confidence; nothing to do
		decision.Reason = contracts.ReasonAlreadyOptimal

	case rec.Confidence < ConfidenceThreshold:
		decision.Reason = contracts.ReasonLowConfidence
		g.logger.WithFields(map[string]interface{}{
			"user_id":    userID,
			"confidence": rec.Confidence,
			"threshold":  ConfidenceThreshold,
		}).Info("Rebalance suppressed by confidence gate")

	default:
		decision.Reason = contracts.ReasonTriggered
		decision.Triggered = true
		g.execute(ctx, decision)
	}

	g.record(ctx, decision, rec)
	return decision
}

// execute hands the swap to the executor and updates the
// basket-of-record on success
func (g *Gate) execute(ctx context.Context, decision *contracts.RebalanceDecision) {
	result, err := g.swapper.Execute(ctx, decision.UserID, decision.FromBasketID, decision.ToBasketID)
	if err != nil {
		decision.Error = err.Error()
		g.logger.WithError(err).WithField("user_id", decision.UserID).Error("Swap execution failed")
		return
	}
	if !result.Success {
		decision.Error = result.Error
		g.logger.WithFields(map[string]interface{}{
			"user_id": decision.UserID,
			"error":   result.Error,
		}).Error("Swap backend reported failure")
		return
	}

	decision.Executed = true
	decision.TxReference = result.TxReference

	if err := g.portfolio.SetUserBasket(ctx, decision.UserID, decision.ToBasketID); err != nil {
		// The swap went through; surface the bookkeeping failure loudly
		decision.Error = err.Error()
		g.logger.WithError(err).WithField("user_id", decision.UserID).Error("Basket-of-record update failed after successful swap")
	}
}

// record emits the decision to the audit sink; failures are swallowed
func (g *Gate) record(ctx context.Context, decision *contracts.RebalanceDecision, rec *contracts.Recommendation) {
	payload := map[string]interface{}{
		"user_id":        decision.UserID,
		"from_basket_id": decision.FromBasketID,
		"to_basket_id":   decision.ToBasketID,
		"reason":         string(decision.Reason),
		"triggered":      decision.Triggered,
		"executed":       decision.Executed,
		"confidence":     rec.Confidence,
	}
	if decision.TxReference != "" {
		payload["tx_reference"] = decision.TxReference
	}
	if decision.Error != "" {
		payload["error"] = decision.Error
	}

	if err := g.audit.Record(ctx, audit.EventRebalanceDecision, payload); err != nil {
		g.logger.WithError(err).Warn("Audit write failed for rebalance decision")
	}
}
