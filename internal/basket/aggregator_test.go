package basket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/yieldpilot/internal/contracts"
)

var testTime = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func sampleSet(yields map[string]int) map[string]*contracts.AssetYieldSample {
	samples := make(map[string]*contracts.AssetYieldSample, len(yields))
	for symbol, bp := range yields {
		samples[symbol] = &contracts.AssetYieldSample{
			Symbol:          symbol,
			YieldBp:         bp,
			SourceTimestamp: testTime,
			Provenance:      "market-rest",
		}
	}
	return samples
}

func conservativeBasket() contracts.BasketDefinition {
	return contracts.BasketDefinition{
		ID:       0,
		Name:     "Stable Reserve",
		RiskTier: "conservative",
		Allocations: []contracts.Allocation{
			{Symbol: "USDC", WeightBp: 6000},
			{Symbol: "ETH", WeightBp: 2000},
			{Symbol: "BTC", WeightBp: 2000},
		},
	}
}

func TestAggregator_WeightedYield(t *testing.T) {
	agg := NewAggregator(NewDefaultCatalog())

	samples := sampleSet(map[string]int{"USDC": 0, "ETH": 1200, "BTC": 800})
	snapshot := agg.Aggregate(conservativeBasket(), samples, testTime)

	// 0*0.6 + 1200*0.2 + 800*0.2 = 400bp
	assert.Equal(t, 400, snapshot.WeightedYieldBp)
	assert.Len(t, snapshot.Contributions, 3)

	// Simple average runs over the weighted contributions (0, 240, 160),
	// not the raw yields
	assert.Equal(t, 133, snapshot.SimpleAvgYieldBp)
}

func TestAggregator_MissingSymbolSkipped(t *testing.T) {
	agg := NewAggregator(NewDefaultCatalog())

	// No BTC sample: its contribution is omitted, no error
	samples := sampleSet(map[string]int{"USDC": 0, "ETH": 1200})
	snapshot := agg.Aggregate(conservativeBasket(), samples, testTime)

	assert.Equal(t, 240, snapshot.WeightedYieldBp)
	assert.Len(t, snapshot.Contributions, 2)
	assert.Equal(t, 120, snapshot.SimpleAvgYieldBp)
}

func TestAggregator_NoMatchedAssets(t *testing.T) {
	agg := NewAggregator(NewDefaultCatalog())

	snapshot := agg.Aggregate(conservativeBasket(), sampleSet(nil), testTime)

	require.NotNil(t, snapshot)
	assert.Equal(t, 0, snapshot.WeightedYieldBp)
	assert.Equal(t, 0, snapshot.SimpleAvgYieldBp)
	assert.Empty(t, snapshot.Contributions)
}

func TestAggregator_Idempotent(t *testing.T) {
	agg := NewAggregator(NewDefaultCatalog())
	samples := sampleSet(map[string]int{"USDC": 150, "ETH": 2200, "BTC": 1750})

	first := agg.Aggregate(conservativeBasket(), samples, testTime)
	second := agg.Aggregate(conservativeBasket(), samples, testTime)

	assert.Equal(t, first, second)
}

func TestAggregator_AggregateAll(t *testing.T) {
	catalog := NewDefaultCatalog()
	agg := NewAggregator(catalog)
	samples := sampleSet(map[string]int{"USDC": 100, "ETH": 1500, "BTC": 1000})

	snapshots := agg.AggregateAll(samples, testTime)

	require.Len(t, snapshots, catalog.Size())
	for i, s := range snapshots {
		assert.Equal(t, i, s.BasketID)
		assert.Equal(t, testTime, s.ComputedAt)
	}

	// Heavier risk tiers weight ETH/BTC more, so the weighted yield
	// must rise with the basket id for this sample set
	assert.Less(t, snapshots[0].WeightedYieldBp, snapshots[1].WeightedYieldBp)
	assert.Less(t, snapshots[1].WeightedYieldBp, snapshots[2].WeightedYieldBp)
}

// Allocation sums other than 10000bp are a precondition violation. The
// aggregator must not crash; the weighted figure simply reflects the
// skewed weights.
func TestAggregator_BadAllocationSum(t *testing.T) {
	agg := NewAggregator(NewDefaultCatalog())

	def := contracts.BasketDefinition{
		ID:   0,
		Name: "broken",
		Allocations: []contracts.Allocation{
			{Symbol: "ETH", WeightBp: 3000}, // sums to 3000, not 10000
		},
	}

	snapshot := agg.Aggregate(def, sampleSet(map[string]int{"ETH": 1000}), testTime)
	assert.Equal(t, 300, snapshot.WeightedYieldBp)
}

func TestCatalog_Validation(t *testing.T) {
	t.Run("default catalog is valid", func(t *testing.T) {
		catalog, err := NewCatalog(DefaultDefinitions())
		require.NoError(t, err)
		assert.Equal(t, 3, catalog.Size())
		assert.Equal(t, 1, catalog.MidBasketID())
	})

	t.Run("rejects bad allocation sum", func(t *testing.T) {
		defs := DefaultDefinitions()
		defs[1].Allocations[0].WeightBp += 1
		_, err := NewCatalog(defs)
		assert.Error(t, err)
	})

	t.Run("rejects out-of-order ids", func(t *testing.T) {
		defs := DefaultDefinitions()
		defs[0].ID = 5
		_, err := NewCatalog(defs)
		assert.Error(t, err)
	})

	t.Run("rejects empty catalog", func(t *testing.T) {
		_, err := NewCatalog(nil)
		assert.Error(t, err)
	})
}

func TestCatalog_Lookup(t *testing.T) {
	catalog := NewDefaultCatalog()

	def, ok := catalog.ByID(2)
	require.True(t, ok)
	assert.Equal(t, "growth", def.RiskTier)

	_, ok = catalog.ByID(3)
	assert.False(t, ok)
	_, ok = catalog.ByID(-1)
	assert.False(t, ok)

	assert.True(t, catalog.ValidID(0))
	assert.False(t, catalog.ValidID(99))
}
