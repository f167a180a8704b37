package advisor

import (
	"encoding/json"
	"math"
	"time"

	"github.com/wonny/yieldpilot/internal/basket"
	"github.com/wonny/yieldpilot/internal/contracts"
)

// Fallback recommendation constants, used whenever the backend output
// cannot be parsed
const (
	FallbackConfidence = 30
	FallbackExpectedBp = 1000
	FallbackRiskScore  = 50
	FallbackReasoning  = "fallback"
	defaultConfidence  = 50
	defaultRiskScore   = 50
	defaultReasoning   = "no reasoning provided"
)

// rawRecommendation mirrors the JSON shape requested from the backend.
// All fields are optional; the backend output is untrusted free text.
type rawRecommendation struct {
	RecommendedBasketID *float64 `json:"recommendedBasketId"`
	Confidence          *float64 `json:"confidence"`
	Reasoning           *string  `json:"reasoning"`
	ExpectedYield       *float64 `json:"expectedYield"`
	RiskScore           *float64 `json:"riskScore"`
}

// ParseRecommendation extracts the first JSON object from the backend's
// free-text response, validates and clamps every field, and returns a
// usable Recommendation in all cases. It never returns an error: any
// parse failure yields the fixed fallback recommendation.
func ParseRecommendation(raw string, catalog *basket.Catalog, producedAt time.Time) *contracts.Recommendation {
	jsonText, ok := firstJSONObject(raw)
	if !ok {
		return FallbackRecommendation(catalog, producedAt)
	}

	var parsed rawRecommendation
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return FallbackRecommendation(catalog, producedAt)
	}

	rec := &contracts.Recommendation{
		BasketID:   catalog.MidBasketID(),
		Confidence: defaultConfidence,
		Reasoning:  defaultReasoning,
		RiskScore:  defaultRiskScore,
		ProducedAt: producedAt,
	}

	// Basket id must be an integer inside the catalog range; anything
	// else falls back to the medium-risk basket
	if parsed.RecommendedBasketID != nil {
		id := *parsed.RecommendedBasketID
		if id == math.Trunc(id) && catalog.ValidID(int(id)) {
			rec.BasketID = int(id)
		}
	}

	if parsed.Confidence != nil {
		rec.Confidence = clampInt(int(math.Round(*parsed.Confidence)), 0, 100)
	}
	if parsed.ExpectedYield != nil {
		rec.ExpectedYieldBp = clampInt(int(math.Round(*parsed.ExpectedYield)), 0, 5000)
	}
	if parsed.RiskScore != nil {
		rec.RiskScore = clampInt(int(math.Round(*parsed.RiskScore)), 0, 100)
	}
	if parsed.Reasoning != nil && *parsed.Reasoning != "" {
		rec.Reasoning = *parsed.Reasoning
	}

	return rec
}

// FallbackRecommendation is the safe default used when the backend
// output is unusable
func FallbackRecommendation(catalog *basket.Catalog, producedAt time.Time) *contracts.Recommendation {
	return &contracts.Recommendation{
		BasketID:        catalog.MidBasketID(),
		Confidence:      FallbackConfidence,
		Reasoning:       FallbackReasoning,
		ExpectedYieldBp: FallbackExpectedBp,
		RiskScore:       FallbackRiskScore,
		Fallback:        true,
		ProducedAt:      producedAt,
	}
}

// firstJSONObject returns the first balanced {...} span in text,
// tracking string literals and escapes so braces inside strings do
// not confuse the scan
func firstJSONObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
