// Package strategy - momentum.go implements a momentum strategy.
//
// Momentum trades with the trend: once its sliding window of recent prices
// has filled, it compares the latest price to the window mean. A deviation
// past Threshold in either direction is read as a breakout and produces a
// signal in that direction; inside the deadband it produces nothing.
package strategy

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/marketdata"
)

// Momentum is a window-mean breakout strategy, one instance per symbol set.
type Momentum struct {
	Base

	id        string
	threshold float64
	quantity  decimal.Decimal
	prices    *windowSet
}

// NewMomentum builds a momentum strategy. window is the number of recent
// prices averaged per symbol; threshold is the fractional deviation from
// that mean (e.g. 0.01 for 1%) required to emit a signal; quantity is the
// fixed size of every signal this strategy produces.
func NewMomentum(id string, window int, threshold float64, quantity decimal.Decimal) *Momentum {
	return &Momentum{
		id:        id,
		threshold: threshold,
		quantity:  quantity,
		prices:    newWindowSet(window),
	}
}

func (m *Momentum) ID() string   { return m.id }
func (m *Momentum) Name() string { return "momentum" }

// OnData updates the symbol's window and, once it has filled, checks the
// latest price against the mean.
func (m *Momentum) OnData(_ context.Context, tick marketdata.Tick) ([]Signal, error) {
	if !m.Running() {
		return nil, nil
	}

	mean, full := m.prices.observe(tick.Symbol, tick.Price)
	if !full || mean.IsZero() {
		return nil, nil
	}

	deviation, _ := tick.Price.Sub(mean).Div(mean).Float64()

	var side Side
	switch {
	case deviation > m.threshold:
		side = SideBuy
	case deviation < -m.threshold:
		side = SideSell
	default:
		return nil, nil
	}

	meanF, _ := mean.Float64()
	signal := Signal{
		ID:         uuid.NewString(),
		StrategyID: m.id,
		Symbol:     tick.Symbol,
		Side:       side,
		Quantity:   m.quantity,
		Confidence: absFloat(deviation),
		Metadata: map[string]float64{
			"mean":      meanF,
			"deviation": deviation,
		},
	}
	return []Signal{signal}, nil
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
