package advisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/yieldpilot/internal/basket"
	"github.com/wonny/yieldpilot/internal/contracts"
)

var parseTime = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func assertFallback(t *testing.T, rec *contracts.Recommendation, catalog *basket.Catalog) {
	t.Helper()
	require.NotNil(t, rec)
	assert.True(t, rec.Fallback)
	assert.Equal(t, catalog.MidBasketID(), rec.BasketID)
	assert.Equal(t, FallbackConfidence, rec.Confidence)
	assert.Equal(t, FallbackExpectedBp, rec.ExpectedYieldBp)
	assert.Equal(t, FallbackRiskScore, rec.RiskScore)
	assert.Equal(t, FallbackReasoning, rec.Reasoning)
}

func TestParseRecommendation_ValidJSON(t *testing.T) {
	catalog := basket.NewDefaultCatalog()

	raw := `{"recommendedBasketId": 2, "confidence": 85, "reasoning": "growth momentum", "expectedYield": 1800, "riskScore": 72}`
	rec := ParseRecommendation(raw, catalog, parseTime)

	assert.Equal(t, 2, rec.BasketID)
	assert.Equal(t, 85, rec.Confidence)
	assert.Equal(t, "growth momentum", rec.Reasoning)
	assert.Equal(t, 1800, rec.ExpectedYieldBp)
	assert.Equal(t, 72, rec.RiskScore)
	assert.False(t, rec.Fallback)
	assert.Equal(t, parseTime, rec.ProducedAt)
}

func TestParseRecommendation_JSONEmbeddedInProse(t *testing.T) {
	catalog := basket.NewDefaultCatalog()

	raw := "Based on the analysis, here is my recommendation:\n" +
		`{"recommendedBasketId": 0, "confidence": 90, "reasoning": "flight to safety", "expectedYield": 300, "riskScore": 10}` +
		"\nLet me know if you need anything else."
	rec := ParseRecommendation(raw, catalog, parseTime)

	assert.Equal(t, 0, rec.BasketID)
	assert.Equal(t, 90, rec.Confidence)
	assert.False(t, rec.Fallback)
}

func TestParseRecommendation_BracesInsideStrings(t *testing.T) {
	catalog := basket.NewDefaultCatalog()

	raw := `{"recommendedBasketId": 1, "confidence": 60, "reasoning": "watch the {BTC} range", "expectedYield": 900, "riskScore": 40}`
	rec := ParseRecommendation(raw, catalog, parseTime)

	assert.Equal(t, "watch the {BTC} range", rec.Reasoning)
	assert.Equal(t, 1, rec.BasketID)
}

func TestParseRecommendation_Fallbacks(t *testing.T) {
	catalog := basket.NewDefaultCatalog()

	tests := []struct {
		name string
		raw  string
	}{
		{"empty response", ""},
		{"plain prose, no JSON", "I think the growth basket looks attractive right now."},
		{"truncated JSON", `{"recommendedBasketId": 2, "confidence": 8`},
		{"not an object", `[1, 2, 3]`},
		{"type mismatch", `{"recommendedBasketId": "growth", "confidence": "high"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ParseRecommendation(tt.raw, catalog, parseTime)
			assertFallback(t, rec, catalog)
		})
	}
}

func TestParseRecommendation_OutOfRangeClamped(t *testing.T) {
	catalog := basket.NewDefaultCatalog()

	raw := `{"recommendedBasketId": 1, "confidence": 250, "reasoning": "x", "expectedYield": 99999, "riskScore": -4}`
	rec := ParseRecommendation(raw, catalog, parseTime)

	assert.Equal(t, 1, rec.BasketID)
	assert.Equal(t, 100, rec.Confidence)
	assert.Equal(t, 5000, rec.ExpectedYieldBp)
	assert.Equal(t, 0, rec.RiskScore)
	assert.False(t, rec.Fallback)
}

func TestParseRecommendation_FieldDefaults(t *testing.T) {
	catalog := basket.NewDefaultCatalog()

	t.Run("missing fields", func(t *testing.T) {
		rec := ParseRecommendation(`{}`, catalog, parseTime)
		assert.Equal(t, catalog.MidBasketID(), rec.BasketID)
		assert.Equal(t, defaultConfidence, rec.Confidence)
		assert.Equal(t, 0, rec.ExpectedYieldBp)
		assert.Equal(t, defaultRiskScore, rec.RiskScore)
		assert.Equal(t, defaultReasoning, rec.Reasoning)
		assert.False(t, rec.Fallback)
	})

	t.Run("basket id out of range", func(t *testing.T) {
		rec := ParseRecommendation(`{"recommendedBasketId": 17, "confidence": 95}`, catalog, parseTime)
		assert.Equal(t, catalog.MidBasketID(), rec.BasketID)
		assert.Equal(t, 95, rec.Confidence)
	})

	t.Run("basket id not an integer", func(t *testing.T) {
		rec := ParseRecommendation(`{"recommendedBasketId": 1.5}`, catalog, parseTime)
		assert.Equal(t, catalog.MidBasketID(), rec.BasketID)
	})

	t.Run("negative basket id", func(t *testing.T) {
		rec := ParseRecommendation(`{"recommendedBasketId": -1}`, catalog, parseTime)
		assert.Equal(t, catalog.MidBasketID(), rec.BasketID)
	})
}

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		found bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"nested object", `{"a":{"b":2}}`, `{"a":{"b":2}}`, true},
		{"prose around", `foo {"a":1} bar {"b":2}`, `{"a":1}`, true},
		{"brace in string", `{"a":"}"}`, `{"a":"}"}`, true},
		{"escaped quote", `{"a":"\"}\""}`, `{"a":"\"}\""}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"no object", "no json here", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := firstJSONObject(tt.in)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}
