package contracts

import "time"

// PricePoint is a single price observation for one asset
type PricePoint struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// AssetYieldSample is one cycle's yield estimate for a single asset.
// Samples are immutable; a new cycle supersedes the previous sample
// for the same symbol instead of mutating it.
type AssetYieldSample struct {
	Symbol          string    `json:"symbol"`
	YieldBp         int       `json:"yield_bp"` // annualized, clamped [0, 5000]
	Volatility      float64   `json:"volatility"`
	SourceTimestamp time.Time `json:"source_timestamp"`
	Provenance      string    `json:"provenance"` // market-rest, market-html, cache
}

// Allocation is one (symbol, weight) entry in a basket definition
type Allocation struct {
	Symbol   string `json:"symbol"`
	WeightBp int    `json:"weight_bp"`
}

// BasketDefinition is read-only reference data fixed at configuration time.
// Allocation weights sum to 10000 bp.
type BasketDefinition struct {
	ID          int          `json:"id"` // 0..N-1
	Name        string       `json:"name"`
	RiskTier    string       `json:"risk_tier"` // conservative, balanced, growth
	Allocations []Allocation `json:"allocations"`
}

// AssetContribution is one asset's allocation-weighted contribution
// to a basket snapshot
type AssetContribution struct {
	Symbol         string `json:"symbol"`
	YieldBp        int    `json:"yield_bp"`
	AllocationBp   int    `json:"allocation_bp"`
	ContributionBp int    `json:"contribution_bp"`
}

// BasketYieldSnapshot is the per-cycle derived yield figure for one basket.
// Previous snapshots are retained in durable history; only the cache's
// latest slot is replaced.
type BasketYieldSnapshot struct {
	BasketID         int                 `json:"basket_id"`
	SimpleAvgYieldBp int                 `json:"simple_avg_yield_bp"`
	WeightedYieldBp  int                 `json:"weighted_yield_bp"`
	Contributions    []AssetContribution `json:"contributions"`
	ComputedAt       time.Time           `json:"computed_at"`
}

// Recommendation is a validated, clamped output of the recommendation
// backend. Persisted append-only; never mutated.
type Recommendation struct {
	BasketID        int       `json:"basket_id"`
	Confidence      int       `json:"confidence"` // [0, 100]
	Reasoning       string    `json:"reasoning"`
	ExpectedYieldBp int       `json:"expected_yield_bp"` // [0, 5000]
	RiskScore       int       `json:"risk_score"`        // [0, 100]
	Fallback        bool      `json:"fallback"`
	ProducedAt      time.Time `json:"produced_at"`
}

// DecisionReason explains a rebalance evaluation outcome
type DecisionReason string

const (
	ReasonAlreadyOptimal DecisionReason = "ALREADY_OPTIMAL"
	ReasonLowConfidence  DecisionReason = "LOW_CONFIDENCE"
	ReasonTriggered      DecisionReason = "TRIGGERED"
)

// RebalanceDecision is the ephemeral result of one user evaluation.
// Logged to audit, not stored as mutable state. When Reason is
// TRIGGERED, Executed reports whether the swap backend succeeded;
// the basket-of-record is only updated on success.
type RebalanceDecision struct {
	UserID       string         `json:"user_id"`
	FromBasketID int            `json:"from_basket_id"`
	ToBasketID   int            `json:"to_basket_id"`
	Triggered    bool           `json:"triggered"`
	Reason       DecisionReason `json:"reason"`
	Executed     bool           `json:"executed"`
	TxReference  string         `json:"tx_reference,omitempty"`
	Error        string         `json:"error,omitempty"`
	EvaluatedAt  time.Time      `json:"evaluated_at"`
}

// SwapResult is the swap backend's execution report
type SwapResult struct {
	Success     bool   `json:"success"`
	TxReference string `json:"tx_reference"`
	GasUsed     int64  `json:"gas_used"`
	Error       string `json:"error,omitempty"`
}

// ProcessingStatus reports the coordinator state
type ProcessingStatus struct {
	IsProcessing   bool       `json:"is_processing"`
	LastCompletion *time.Time `json:"last_completion,omitempty"`
}
