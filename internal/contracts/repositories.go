package contracts

import (
	"context"
	"time"
)

// SampleRepository stores per-asset yield samples (append-only)
type SampleRepository interface {
	SaveSample(ctx context.Context, sample *AssetYieldSample) error
	LatestSamples(ctx context.Context) (map[string]*AssetYieldSample, error)
	HistoricalSamples(ctx context.Context, symbols []string, since time.Time) (map[string][]AssetYieldSample, error)
}

// SnapshotRepository stores basket yield snapshots. SaveSnapshots is
// transactional: all-or-nothing per cycle.
type SnapshotRepository interface {
	SaveSnapshots(ctx context.Context, snapshots []*BasketYieldSnapshot) error
	LatestSnapshots(ctx context.Context) ([]*BasketYieldSnapshot, error)
}

// RecommendationRepository stores recommendations append-only
type RecommendationRepository interface {
	SaveRecommendation(ctx context.Context, rec *Recommendation) error
	LatestRecommendation(ctx context.Context) (*Recommendation, error)
}

// PortfolioRepository tracks each user's basket-of-record
type PortfolioRepository interface {
	GetUserBasket(ctx context.Context, userID string) (int, error)
	SetUserBasket(ctx context.Context, userID string, basketID int) error
}
