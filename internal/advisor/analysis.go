package advisor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/yieldpilot/internal/basket"
	"github.com/wonny/yieldpilot/internal/contracts"
)

// Trend directions derived from first-vs-last comparison
const (
	TrendUpward   = "upward"
	TrendDownward = "downward"
	TrendStable   = "stable"
)

// AssetAnalysis summarizes one asset for the recommendation prompt
type AssetAnalysis struct {
	Symbol         string `json:"symbol"`
	CurrentYieldBp int    `json:"currentYieldBp"`
	HistoryBp      []int  `json:"historyBp"`
	Trend          string `json:"trend"`
}

// BasketAnalysis summarizes one basket for the recommendation prompt
type BasketAnalysis struct {
	BasketID            int     `json:"basketId"`
	Name                string  `json:"name"`
	RiskTier            string  `json:"riskTier"`
	ExpectedYieldBp     int     `json:"expectedYieldBp"`
	Volatility          float64 `json:"volatility"` // percent
	RiskAdjustedYieldBp float64 `json:"riskAdjustedYieldBp"`
}

// Analysis is the structured payload handed to the recommendation backend
type Analysis struct {
	Assets         []AssetAnalysis  `json:"assets"`
	Baskets        []BasketAnalysis `json:"baskets"`
	RiskPreference string           `json:"riskPreference,omitempty"`
	GeneratedAt    time.Time        `json:"generatedAt"`
}

// BuildAnalysis assembles the analysis payload from the latest samples,
// the freshly computed basket snapshots, and a bounded history window.
func BuildAnalysis(
	catalog *basket.Catalog,
	samples map[string]*contracts.AssetYieldSample,
	snapshots []*contracts.BasketYieldSnapshot,
	history map[string][]contracts.AssetYieldSample,
	riskPreference string,
	now time.Time,
) *Analysis {
	analysis := &Analysis{
		RiskPreference: riskPreference,
		GeneratedAt:    now,
	}

	for _, def := range catalog.All() {
		for _, alloc := range def.Allocations {
			if containsSymbol(analysis.Assets, alloc.Symbol) {
				continue
			}

			asset := AssetAnalysis{Symbol: alloc.Symbol, Trend: TrendStable}
			if s, ok := samples[alloc.Symbol]; ok {
				asset.CurrentYieldBp = s.YieldBp
			}
			for _, h := range history[alloc.Symbol] {
				asset.HistoryBp = append(asset.HistoryBp, h.YieldBp)
			}
			asset.Trend = trendOf(asset.HistoryBp)

			analysis.Assets = append(analysis.Assets, asset)
		}
	}

	for _, snapshot := range snapshots {
		def, ok := catalog.ByID(snapshot.BasketID)
		if !ok {
			continue
		}

		volatility := basketVolatility(def, samples)
		expected := snapshot.WeightedYieldBp

		analysis.Baskets = append(analysis.Baskets, BasketAnalysis{
			BasketID:            def.ID,
			Name:                def.Name,
			RiskTier:            def.RiskTier,
			ExpectedYieldBp:     expected,
			Volatility:          volatility,
			RiskAdjustedYieldBp: float64(expected) / (1 + volatility/100),
		})
	}

	return analysis
}

// trendOf compares the first and last history points
func trendOf(history []int) string {
	if len(history) < 2 {
		return TrendStable
	}

	first, last := history[0], history[len(history)-1]
	switch {
	case last > first:
		return TrendUpward
	case last < first:
		return TrendDownward
	default:
		return TrendStable
	}
}

// basketVolatility is the allocation-weighted asset volatility in percent
func basketVolatility(def contracts.BasketDefinition, samples map[string]*contracts.AssetYieldSample) float64 {
	var vol float64
	for _, alloc := range def.Allocations {
		s, ok := samples[alloc.Symbol]
		if !ok {
			continue
		}
		vol += s.Volatility * 100 * float64(alloc.WeightBp) / float64(basket.TotalAllocationBp)
	}
	return vol
}

func containsSymbol(assets []AssetAnalysis, symbol string) bool {
	for _, a := range assets {
		if a.Symbol == symbol {
			return true
		}
	}
	return false
}

// BuildPrompt renders the analysis plus the fixed basket descriptions
// into the text handed to the recommendation backend
func BuildPrompt(catalog *basket.Catalog, analysis *Analysis) string {
	var b strings.Builder

	b.WriteString("You are a portfolio yield advisor. Available baskets:\n")
	for _, def := range catalog.All() {
		b.WriteString(fmt.Sprintf("- id %d: %s (%s):", def.ID, def.Name, def.RiskTier))
		for _, alloc := range def.Allocations {
			b.WriteString(fmt.Sprintf(" %s %.1f%%", alloc.Symbol, float64(alloc.WeightBp)/100))
		}
		b.WriteString("\n")
	}

	payload, err := json.Marshal(analysis)
	if err != nil {
		// Analysis is built from plain values; marshal cannot fail in practice
		payload = []byte("{}")
	}

	b.WriteString("\nCurrent market analysis:\n")
	b.Write(payload)
	b.WriteString("\n\nRespond with a single JSON object: ")
	b.WriteString(`{"recommendedBasketId": <int>, "confidence": <0-100>, "reasoning": "<text>", "expectedYield": <basis points 0-5000>, "riskScore": <0-100>}`)

	return b.String()
}
