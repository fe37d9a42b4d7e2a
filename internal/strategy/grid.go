// Package strategy - grid.go implements a grid trading strategy.
//
// Grid anchors a reference price per symbol on its first tick, then lays
// symmetric buy levels below and sell levels above that anchor, spaced by a
// fixed fraction of it. Crossing a level in the expected direction emits a
// signal and re-anchors to the crossing price, so the grid follows price
// rather than firing repeatedly around a stale anchor.
package strategy

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/marketdata"
)

// Grid is a symmetric anchored-levels strategy, one anchor per symbol.
type Grid struct {
	Base

	id       string
	spacing  decimal.Decimal // fraction of anchor between adjacent levels
	levels   int             // number of buy/sell levels on each side
	quantity decimal.Decimal

	mu      sync.Mutex
	anchors map[string]decimal.Decimal
}

// NewGrid builds a grid strategy with levels buy/sell rungs spaced spacing
// (a fraction of the anchor, e.g. 0.01 for 1%) apart on each side.
func NewGrid(id string, spacing float64, levels int, quantity decimal.Decimal) *Grid {
	return &Grid{
		id:       id,
		spacing:  decimal.NewFromFloat(spacing),
		levels:   levels,
		quantity: quantity,
		anchors:  make(map[string]decimal.Decimal),
	}
}

func (g *Grid) ID() string   { return g.id }
func (g *Grid) Name() string { return "grid" }

func (g *Grid) OnData(_ context.Context, tick marketdata.Tick) ([]Signal, error) {
	if !g.Running() {
		return nil, nil
	}

	g.mu.Lock()
	anchor, ok := g.anchors[tick.Symbol]
	if !ok {
		g.anchors[tick.Symbol] = tick.Price
		g.mu.Unlock()
		return nil, nil
	}
	g.mu.Unlock()

	side, hit, ok := g.crossedLevel(anchor, tick.Price)
	if !ok {
		return nil, nil
	}

	g.mu.Lock()
	g.anchors[tick.Symbol] = tick.Price
	g.mu.Unlock()

	anchorF, _ := anchor.Float64()
	hitF, _ := hit.Float64()
	signal := Signal{
		ID:         uuid.NewString(),
		StrategyID: g.id,
		Symbol:     tick.Symbol,
		Side:       side,
		Quantity:   g.quantity,
		Confidence: 1,
		Metadata: map[string]float64{
			"anchor": anchorF,
			"level":  hitF,
		},
	}
	return []Signal{signal}, nil
}

// crossedLevel reports whether price has crossed a buy level below anchor
// or a sell level above it, and which one. When several levels are
// crossed, the farthest one from anchor is returned.
func (g *Grid) crossedLevel(anchor, price decimal.Decimal) (side Side, level decimal.Decimal, crossed bool) {
	one := decimal.NewFromInt(1)
	for k := 1; k <= g.levels; k++ {
		step := g.spacing.Mul(decimal.NewFromInt(int64(k)))

		buyLevel := anchor.Mul(one.Sub(step))
		if price.LessThanOrEqual(buyLevel) {
			side, level, crossed = SideBuy, buyLevel, true
			continue
		}

		sellLevel := anchor.Mul(one.Add(step))
		if price.GreaterThanOrEqual(sellLevel) {
			side, level, crossed = SideSell, sellLevel, true
		}
	}
	return side, level, crossed
}
