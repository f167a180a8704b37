package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/yieldpilot/internal/basket"
	"github.com/wonny/yieldpilot/internal/contracts"
	"github.com/wonny/yieldpilot/pkg/logger"
)

// HistoryWindow bounds the per-asset yield history fed to the backend
const HistoryWindow = 7 * 24 * time.Hour

// Engine builds the analysis payload, delegates to the recommendation
// backend, and turns its untrusted output into a validated
// Recommendation. Every produced recommendation, fallback included, is
// persisted append-only.
// ⭐ SSOT: recommendation production lives here only
type Engine struct {
	backend contracts.RecommendationBackend
	samples contracts.SampleRepository
	repo    contracts.RecommendationRepository
	catalog *basket.Catalog
	logger  *logger.Logger
}

// NewEngine creates a recommendation engine
func NewEngine(
	backend contracts.RecommendationBackend,
	samples contracts.SampleRepository,
	repo contracts.RecommendationRepository,
	catalog *basket.Catalog,
	log *logger.Logger,
) *Engine {
	return &Engine{
		backend: backend,
		samples: samples,
		repo:    repo,
		catalog: catalog,
		logger:  log,
	}
}

// Advise produces a recommendation from the freshly computed basket
// snapshots. Backend, history, and parse failures never surface as
// errors; they degrade to the fixed fallback recommendation. The only
// error returned is a persistence failure, and even then the
// recommendation itself is still usable by the caller.
func (e *Engine) Advise(ctx context.Context, snapshots []*contracts.BasketYieldSnapshot, riskPreference string) (*contracts.Recommendation, error) {
	now := time.Now()
	rec := e.produce(ctx, snapshots, riskPreference, now)

	if err := e.repo.SaveRecommendation(ctx, rec); err != nil {
		return rec, fmt.Errorf("save recommendation: %w", err)
	}

	e.logger.WithFields(map[string]interface{}{
		"basket_id":  rec.BasketID,
		"confidence": rec.Confidence,
		"fallback":   rec.Fallback,
	}).Info("Recommendation produced")

	return rec, nil
}

func (e *Engine) produce(ctx context.Context, snapshots []*contracts.BasketYieldSnapshot, riskPreference string, now time.Time) *contracts.Recommendation {
	samples, err := e.samples.LatestSamples(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("Latest samples unavailable, using fallback recommendation")
		return FallbackRecommendation(e.catalog, now)
	}

	symbols := make([]string, 0, len(samples))
	for symbol := range samples {
		symbols = append(symbols, symbol)
	}

	history, err := e.samples.HistoricalSamples(ctx, symbols, now.Add(-HistoryWindow))
	if err != nil {
		e.logger.WithError(err).Warn("Yield history unavailable, continuing without it")
		history = nil
	}

	analysis := BuildAnalysis(e.catalog, samples, snapshots, history, riskPreference, now)
	prompt := BuildPrompt(e.catalog, analysis)

	raw, err := e.backend.Generate(ctx, prompt)
	if err != nil {
		e.logger.WithError(err).Warn("Recommendation backend failed, using fallback recommendation")
		return FallbackRecommendation(e.catalog, now)
	}

	return ParseRecommendation(raw, e.catalog, now)
}
