package contracts

import (
	"context"
	"time"
)

// MarketDataClient supplies current and historical price series
// ⭐ SSOT: market data access contract
type MarketDataClient interface {
	FetchCurrent(ctx context.Context, symbols []string) (map[string]PricePoint, error)
	FetchHistorical(ctx context.Context, symbols []string, start, end time.Time) (map[string][]PricePoint, error)
}

// CacheStore is a TTL-capable key-value cache. Best effort: absence
// and failure are both treated as a miss by callers.
type CacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RecommendationBackend generates free-text advice for an analysis
// prompt. The output carries no schema guarantee and must go through
// the parse/validate/clamp step before use.
type RecommendationBackend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SwapExecutor performs the actual token exchange for a rebalance
type SwapExecutor interface {
	Execute(ctx context.Context, userID string, fromBasketID, toBasketID int) (*SwapResult, error)
}

// AuditRecorder receives structured event records for every
// decision/outcome. Fire-and-forget: callers log and swallow failures.
type AuditRecorder interface {
	Record(ctx context.Context, eventType string, payload map[string]interface{}) error
}
