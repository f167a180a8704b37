package yield

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/yieldpilot/internal/contracts"
)

// SampleRepository implements contracts.SampleRepository
// ⭐ SSOT: asset yield sample storage lives here only
type SampleRepository struct {
	pool *pgxpool.Pool
}

// NewSampleRepository creates a new sample repository
func NewSampleRepository(pool *pgxpool.Pool) *SampleRepository {
	return &SampleRepository{pool: pool}
}

// SaveSample appends one sample to history. Samples are never updated.
func (r *SampleRepository) SaveSample(ctx context.Context, sample *contracts.AssetYieldSample) error {
	query := `
		INSERT INTO yield.asset_samples (symbol, yield_bp, volatility, source_timestamp, provenance)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		sample.Symbol, sample.YieldBp, sample.Volatility, sample.SourceTimestamp, sample.Provenance,
	)
	return err
}

// LatestSamples returns the most recent sample per symbol
func (r *SampleRepository) LatestSamples(ctx context.Context) (map[string]*contracts.AssetYieldSample, error) {
	query := `
		SELECT DISTINCT ON (symbol) symbol, yield_bp, volatility, source_timestamp, provenance
		FROM yield.asset_samples
		ORDER BY symbol, source_timestamp DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := make(map[string]*contracts.AssetYieldSample)
	for rows.Next() {
		var s contracts.AssetYieldSample
		if err := rows.Scan(&s.Symbol, &s.YieldBp, &s.Volatility, &s.SourceTimestamp, &s.Provenance); err != nil {
			return nil, err
		}
		samples[s.Symbol] = &s
	}
	return samples, rows.Err()
}

// HistoricalSamples returns samples for the given symbols since a cutoff,
// oldest first per symbol
func (r *SampleRepository) HistoricalSamples(ctx context.Context, symbols []string, since time.Time) (map[string][]contracts.AssetYieldSample, error) {
	query := `
		SELECT symbol, yield_bp, volatility, source_timestamp, provenance
		FROM yield.asset_samples
		WHERE symbol = ANY($1) AND source_timestamp >= $2
		ORDER BY symbol, source_timestamp ASC
	`

	rows, err := r.pool.Query(ctx, query, symbols, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make(map[string][]contracts.AssetYieldSample)
	for rows.Next() {
		var s contracts.AssetYieldSample
		if err := rows.Scan(&s.Symbol, &s.YieldBp, &s.Volatility, &s.SourceTimestamp, &s.Provenance); err != nil {
			return nil, err
		}
		history[s.Symbol] = append(history[s.Symbol], s)
	}
	return history, rows.Err()
}
