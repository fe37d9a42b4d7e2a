// Package analytics computes performance metrics from an equity curve:
// per-period returns, an annualized Sharpe ratio, and maximum drawdown.
package analytics

import (
	"math"

	"github.com/shopspring/decimal"
)

// Metrics holds the per-period returns derived from an equity curve.
type Metrics struct {
	Returns []float64
}

// NewMetrics derives per-period simple returns from a chronological
// sequence of equity samples: returns[i] = (curve[i+1]-curve[i])/curve[i].
// A zero denominator contributes a zero return rather than dividing by
// zero.
func NewMetrics(equityCurve []decimal.Decimal) Metrics {
	if len(equityCurve) < 2 {
		return Metrics{}
	}

	returns := make([]float64, 0, len(equityCurve)-1)
	for i := 1; i < len(equityCurve); i++ {
		prev := equityCurve[i-1]
		if prev.IsZero() {
			returns = append(returns, 0)
			continue
		}
		r, _ := equityCurve[i].Sub(prev).Div(prev).Float64()
		returns = append(returns, r)
	}
	return Metrics{Returns: returns}
}

// SharpeRatio computes the annualized Sharpe ratio of the period returns
// against riskFree, assuming 252 periods per year. Returns zero when
// fewer than two returns are available or the sample has zero variance.
func (m Metrics) SharpeRatio(riskFree float64) float64 {
	if len(m.Returns) < 2 {
		return 0
	}

	excess := make([]float64, len(m.Returns))
	var sum float64
	for i, r := range m.Returns {
		excess[i] = r - riskFree
		sum += excess[i]
	}
	mean := sum / float64(len(excess))

	var variance float64
	for _, e := range excess {
		diff := e - mean
		variance += diff * diff
	}
	variance /= float64(len(excess) - 1)
	stdDev := math.Sqrt(variance)

	if stdDev == 0 {
		return 0
	}
	return mean / stdDev * math.Sqrt(252)
}

// MaxDrawdown returns the largest peak-to-trough fractional decline across
// the equity curve. Zero for an empty curve.
func MaxDrawdown(equityCurve []decimal.Decimal) float64 {
	if len(equityCurve) == 0 {
		return 0
	}

	maxPeak := equityCurve[0]
	var maxDD float64
	for _, value := range equityCurve {
		if value.GreaterThan(maxPeak) {
			maxPeak = value
		}
		if maxPeak.IsZero() {
			continue
		}
		dd, _ := maxPeak.Sub(value).Div(maxPeak).Float64()
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// TotalReturn is (last-first)/first over the curve, or zero with fewer
// than two samples.
func TotalReturn(equityCurve []decimal.Decimal) decimal.Decimal {
	if len(equityCurve) < 2 {
		return decimal.Zero
	}
	first := equityCurve[0]
	if first.IsZero() {
		return decimal.Zero
	}
	last := equityCurve[len(equityCurve)-1]
	return last.Sub(first).Div(first)
}
