package advisor

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/yieldpilot/internal/contracts"
)

// Repository implements contracts.RecommendationRepository
// ⭐ SSOT: recommendation storage lives here only
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new recommendation repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRecommendation appends a recommendation to history
func (r *Repository) SaveRecommendation(ctx context.Context, rec *contracts.Recommendation) error {
	query := `
		INSERT INTO advisor.recommendations (basket_id, confidence, reasoning, expected_yield_bp, risk_score, fallback, produced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.BasketID, rec.Confidence, rec.Reasoning, rec.ExpectedYieldBp, rec.RiskScore, rec.Fallback, rec.ProducedAt,
	)
	return err
}

// LatestRecommendation returns the most recent recommendation, or nil
// when none has been produced yet
func (r *Repository) LatestRecommendation(ctx context.Context) (*contracts.Recommendation, error) {
	query := `
		SELECT basket_id, confidence, reasoning, expected_yield_bp, risk_score, fallback, produced_at
		FROM advisor.recommendations
		ORDER BY produced_at DESC
		LIMIT 1
	`

	var rec contracts.Recommendation
	err := r.pool.QueryRow(ctx, query).Scan(
		&rec.BasketID, &rec.Confidence, &rec.Reasoning, &rec.ExpectedYieldBp, &rec.RiskScore, &rec.Fallback, &rec.ProducedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
