package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Event types emitted by the pipeline
const (
	EventBasketYieldUpdated = "basket_yield_updated"
	EventRebalanceDecision  = "rebalance_decision"
	EventCycleSkipped       = "cycle_skipped"
)

// Recorder implements contracts.AuditRecorder on the durable store.
// Callers treat it as fire-and-forget: a failed write is their problem
// to log, never to propagate.
// ⭐ SSOT: audit event storage lives here only
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder creates a new audit recorder
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record appends one event to the audit log
func (r *Recorder) Record(ctx context.Context, eventType string, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit.events (event_type, payload, recorded_at)
		VALUES ($1, $2, NOW())
	`

	if _, err := r.pool.Exec(ctx, query, eventType, data); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
