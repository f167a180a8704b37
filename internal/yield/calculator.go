package yield

import (
	"math"

	"github.com/wonny/yieldpilot/internal/contracts"
)

const (
	// DefaultRiskFreeRate is the fixed baseline in percent
	DefaultRiskFreeRate = 2.0

	// MaxYieldBp caps the annualized estimate at 50%
	MaxYieldBp = 5000
)

// Calculator converts a price series into a bounded annualized-yield
// estimate plus a volatility figure. The estimate is a volatility-driven
// risk premium on top of a fixed risk-free baseline, a simplified proxy
// rather than a market-accurate APR.
// ⭐ SSOT: asset yield math lives here only
type Calculator struct {
	riskFreeRate float64
}

// NewCalculator creates a calculator with the default risk-free baseline
func NewCalculator() *Calculator {
	return &Calculator{riskFreeRate: DefaultRiskFreeRate}
}

// NewCalculatorWithRate creates a calculator with a custom baseline
func NewCalculatorWithRate(riskFreeRate float64) *Calculator {
	return &Calculator{riskFreeRate: riskFreeRate}
}

// Compute returns the annualized yield in basis points, clamped to
// [0, MaxYieldBp], and the volatility of period returns. Deterministic
// for identical input; with fewer than 2 points it returns (0, 0)
// instead of an error.
func (c *Calculator) Compute(series []contracts.PricePoint) (int, float64) {
	returns := periodReturns(series)
	if len(returns) == 0 {
		return 0, 0
	}

	volatility := popStdDev(returns)

	yieldBp := int(math.Round((c.riskFreeRate + volatility*100) * 100))
	return clampBp(yieldBp), volatility
}

// periodReturns computes period-over-period returns. Pairs with a zero
// base price are skipped.
func periodReturns(series []contracts.PricePoint) []float64 {
	if len(series) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1].Price
		if prev == 0 {
			continue
		}
		returns = append(returns, (series[i].Price-prev)/prev)
	}
	return returns
}

// popStdDev is the population standard deviation
func popStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

func clampBp(bp int) int {
	if bp < 0 {
		return 0
	}
	if bp > MaxYieldBp {
		return MaxYieldBp
	}
	return bp
}
