package advisor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/yieldpilot/internal/basket"
	"github.com/wonny/yieldpilot/internal/contracts"
)

func testSamples() map[string]*contracts.AssetYieldSample {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	return map[string]*contracts.AssetYieldSample{
		"USDC": {Symbol: "USDC", YieldBp: 100, Volatility: 0.001, SourceTimestamp: now},
		"ETH":  {Symbol: "ETH", YieldBp: 1500, Volatility: 0.04, SourceTimestamp: now},
		"BTC":  {Symbol: "BTC", YieldBp: 1100, Volatility: 0.03, SourceTimestamp: now},
	}
}

func historyFor(symbol string, yields ...int) []contracts.AssetYieldSample {
	base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	out := make([]contracts.AssetYieldSample, len(yields))
	for i, y := range yields {
		out[i] = contracts.AssetYieldSample{
			Symbol:          symbol,
			YieldBp:         y,
			SourceTimestamp: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func TestTrendOf(t *testing.T) {
	tests := []struct {
		name    string
		history []int
		want    string
	}{
		{"rising", []int{100, 150, 200}, TrendUpward},
		{"falling", []int{200, 180, 120}, TrendDownward},
		{"flat", []int{150, 90, 150}, TrendStable},
		{"single point", []int{150}, TrendStable},
		{"empty", nil, TrendStable},
		{"dip then recover above", []int{100, 20, 101}, TrendUpward},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trendOf(tt.history))
		})
	}
}

func TestBuildAnalysis(t *testing.T) {
	catalog := basket.NewDefaultCatalog()
	samples := testSamples()
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	snapshots := []*contracts.BasketYieldSnapshot{
		{BasketID: 0, WeightedYieldBp: 580, ComputedAt: now},
		{BasketID: 1, WeightedYieldBp: 940, ComputedAt: now},
		{BasketID: 2, WeightedYieldBp: 1180, ComputedAt: now},
	}

	history := map[string][]contracts.AssetYieldSample{
		"ETH": historyFor("ETH", 1200, 1350, 1500),
		"BTC": historyFor("BTC", 1300, 1200, 1100),
	}

	analysis := BuildAnalysis(catalog, samples, snapshots, history, "balanced", now)

	require.Len(t, analysis.Assets, 3)
	require.Len(t, analysis.Baskets, 3)
	assert.Equal(t, "balanced", analysis.RiskPreference)

	bySymbol := make(map[string]AssetAnalysis)
	for _, a := range analysis.Assets {
		bySymbol[a.Symbol] = a
	}

	assert.Equal(t, TrendUpward, bySymbol["ETH"].Trend)
	assert.Equal(t, 1500, bySymbol["ETH"].CurrentYieldBp)
	assert.Equal(t, TrendDownward, bySymbol["BTC"].Trend)
	assert.Equal(t, TrendStable, bySymbol["USDC"].Trend, "no history means stable")

	for _, b := range analysis.Baskets {
		assert.Greater(t, b.Volatility, 0.0)
		// risk-adjusted = expected / (1 + vol/100), so always below expected
		assert.Less(t, b.RiskAdjustedYieldBp, float64(b.ExpectedYieldBp))
	}
}

func TestBuildAnalysis_RiskAdjustedFormula(t *testing.T) {
	catalog := basket.NewDefaultCatalog()
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	// Single sample with 5% volatility forces an exact figure for the
	// conservative basket: vol = 5 * 0.2 = 1.0%, adjusted = 1000/1.01
	samples := map[string]*contracts.AssetYieldSample{
		"ETH": {Symbol: "ETH", YieldBp: 5000, Volatility: 0.05, SourceTimestamp: now},
	}
	snapshots := []*contracts.BasketYieldSnapshot{
		{BasketID: 0, WeightedYieldBp: 1000, ComputedAt: now},
	}

	analysis := BuildAnalysis(catalog, samples, snapshots, nil, "", now)

	require.Len(t, analysis.Baskets, 1)
	b := analysis.Baskets[0]
	assert.InDelta(t, 1.0, b.Volatility, 1e-9)
	assert.InDelta(t, 1000.0/1.01, b.RiskAdjustedYieldBp, 1e-9)
}

func TestBuildPrompt(t *testing.T) {
	catalog := basket.NewDefaultCatalog()
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	analysis := BuildAnalysis(catalog, testSamples(), nil, nil, "", now)
	prompt := BuildPrompt(catalog, analysis)

	// The prompt must name every basket and demand the JSON shape the
	// parser expects
	for _, def := range catalog.All() {
		assert.Contains(t, prompt, def.Name)
	}
	assert.Contains(t, prompt, "recommendedBasketId")
	assert.Contains(t, prompt, "confidence")
	assert.True(t, strings.Contains(prompt, `"assets"`))
}
