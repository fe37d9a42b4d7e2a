// Package strategy - mean_reversion.go implements a mean-reversion strategy.
//
// Mean-reversion bets against the momentum strategy's assumption: once its
// window has filled, it computes a z-score of the latest price against the
// window mean, using a fixed fraction of the mean as the standard-deviation
// proxy (no history of variance is kept). A price far above the mean is
// treated as overbought (SELL); far below, oversold (BUY).
package strategy

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/marketdata"
)

// MeanReversion fades deviations from a symbol's sliding-window mean.
type MeanReversion struct {
	Base

	id           string
	zThreshold   float64
	stdDevFactor float64 // fraction of mean used as the std-dev proxy
	quantity     decimal.Decimal
	prices       *windowSet
}

// NewMeanReversion builds a mean-reversion strategy. window is the number
// of recent prices averaged per symbol; stdDevFactor is the fraction of the
// mean treated as one standard deviation (e.g. 0.01 for 1%); zThreshold is
// the number of those standard deviations the price must clear to signal.
func NewMeanReversion(id string, window int, stdDevFactor, zThreshold float64, quantity decimal.Decimal) *MeanReversion {
	return &MeanReversion{
		id:           id,
		zThreshold:   zThreshold,
		stdDevFactor: stdDevFactor,
		quantity:     quantity,
		prices:       newWindowSet(window),
	}
}

func (r *MeanReversion) ID() string   { return r.id }
func (r *MeanReversion) Name() string { return "mean_reversion" }

func (r *MeanReversion) OnData(_ context.Context, tick marketdata.Tick) ([]Signal, error) {
	if !r.Running() {
		return nil, nil
	}

	mean, full := r.prices.observe(tick.Symbol, tick.Price)
	if !full || mean.IsZero() {
		return nil, nil
	}

	stdDev := mean.Mul(decimal.NewFromFloat(r.stdDevFactor))
	if stdDev.IsZero() {
		return nil, nil
	}
	z, _ := tick.Price.Sub(mean).Div(stdDev).Float64()

	var side Side
	switch {
	case z > r.zThreshold:
		side = SideSell
	case z < -r.zThreshold:
		side = SideBuy
	default:
		return nil, nil
	}

	meanF, _ := mean.Float64()
	signal := Signal{
		ID:         uuid.NewString(),
		StrategyID: r.id,
		Symbol:     tick.Symbol,
		Side:       side,
		Quantity:   r.quantity,
		Confidence: absFloat(z) / r.zThreshold,
		Metadata: map[string]float64{
			"mean":    meanF,
			"z_score": z,
		},
	}
	return []Signal{signal}, nil
}
