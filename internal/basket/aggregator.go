package basket

import (
	"math"
	"time"

	"github.com/wonny/yieldpilot/internal/contracts"
)

// Aggregator combines asset yield samples into basket-level snapshots
// ⭐ SSOT: basket yield math lives here only
type Aggregator struct {
	catalog *Catalog
}

// NewAggregator creates an aggregator over a catalog
func NewAggregator(catalog *Catalog) *Aggregator {
	return &Aggregator{catalog: catalog}
}

// Aggregate computes one basket's snapshot from the current sample set.
// Symbols without a matching sample are skipped; a partial basket is a
// valid result, and a basket with zero matched assets yields 0/0 rather
// than an error. Idempotent for identical inputs.
//
// Note: the "simple average" is the mean of the allocation-weighted
// contributions that were present, not of the raw per-asset yields.
// This conflation of simple and weighted semantics is intentional and
// mirrors the historical behavior; see DESIGN.md before changing it.
func (a *Aggregator) Aggregate(def contracts.BasketDefinition, samples map[string]*contracts.AssetYieldSample, computedAt time.Time) *contracts.BasketYieldSnapshot {
	snapshot := &contracts.BasketYieldSnapshot{
		BasketID:      def.ID,
		Contributions: make([]contracts.AssetContribution, 0, len(def.Allocations)),
		ComputedAt:    computedAt,
	}

	var weighted float64
	for _, alloc := range def.Allocations {
		sample, ok := samples[alloc.Symbol]
		if !ok {
			continue
		}

		contribution := float64(sample.YieldBp) * float64(alloc.WeightBp) / float64(TotalAllocationBp)
		weighted += contribution

		snapshot.Contributions = append(snapshot.Contributions, contracts.AssetContribution{
			Symbol:         alloc.Symbol,
			YieldBp:        sample.YieldBp,
			AllocationBp:   alloc.WeightBp,
			ContributionBp: int(math.Round(contribution)),
		})
	}

	if len(snapshot.Contributions) == 0 {
		return snapshot
	}

	snapshot.WeightedYieldBp = int(math.Round(weighted))
	snapshot.SimpleAvgYieldBp = int(math.Round(weighted / float64(len(snapshot.Contributions))))

	return snapshot
}

// AggregateAll computes snapshots for every basket in the catalog
func (a *Aggregator) AggregateAll(samples map[string]*contracts.AssetYieldSample, computedAt time.Time) []*contracts.BasketYieldSnapshot {
	defs := a.catalog.All()
	snapshots := make([]*contracts.BasketYieldSnapshot, 0, len(defs))
	for _, def := range defs {
		snapshots = append(snapshots, a.Aggregate(def, samples, computedAt))
	}
	return snapshots
}
