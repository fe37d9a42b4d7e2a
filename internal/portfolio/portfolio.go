// Package portfolio is the authoritative owner of cash and per-symbol
// positions. No other component mutates portfolio state; the execution
// loop is its only writer.
//
// Design rules (from spec):
//   - Arithmetic only; no I/O, no failure modes.
//   - quantity == 0 implies average_price == 0.
//   - A same-direction fill updates average_price as the size-weighted mean
//     of prior and new fills.
//   - A smaller opposite-direction fill (partial close) leaves
//     average_price unchanged and shrinks |quantity|.
//   - An opposite fill that flips the sign resets average_price to the
//     flipping fill's price.
//   - An exact-close fill resets average_price to zero.
package portfolio

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Position is the open stake in one symbol. A zero-quantity Position
// carries a zero average_price.
type Position struct {
	Symbol        string
	Quantity      decimal.Decimal
	AveragePrice  decimal.Decimal
}

// Portfolio holds cash and every symbol's Position. Safe for concurrent
// reads; mutation methods take an internal lock, though the single-writer
// discipline of the execution loop means contention never occurs in
// practice.
type Portfolio struct {
	mu        sync.RWMutex
	cash      decimal.Decimal
	positions map[string]*Position
}

// New creates a Portfolio with the given starting cash and no positions.
func New(startingCash decimal.Decimal) *Portfolio {
	return &Portfolio{
		cash:      startingCash,
		positions: make(map[string]*Position),
	}
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cash
}

// UpdateCash adds signed delta to cash. Cash may go negative only through
// this explicit call; nothing else touches it.
func (p *Portfolio) UpdateCash(delta decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cash = p.cash.Add(delta)
}

// Position returns a copy of symbol's position, or the zero value if none
// is held.
func (p *Portfolio) Position(symbol string) Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if pos, ok := p.positions[symbol]; ok {
		return *pos
	}
	return Position{Symbol: symbol}
}

// HeldSymbol reports whether symbol currently carries a non-zero position.
// Wired into the risk gate's open-position-count check.
func (p *Portfolio) HeldSymbol(symbol string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pos, ok := p.positions[symbol]
	return ok && !pos.Quantity.IsZero()
}

// OpenPositions returns the number of symbols with a non-zero position.
func (p *Portfolio) OpenPositions() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, pos := range p.positions {
		if !pos.Quantity.IsZero() {
			n++
		}
	}
	return n
}

// UpdatePosition applies a fill of fillQty @ fillPrice to symbol's position
// and returns the resulting state. Zero fill is a no-op. fillQty carries
// the fill's direction: positive for BUY, negative for SELL.
func (p *Portfolio) UpdatePosition(symbol string, fillQty, fillPrice decimal.Decimal) Position {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fillQty.IsZero() {
		if pos, ok := p.positions[symbol]; ok {
			return *pos
		}
		return Position{Symbol: symbol}
	}

	pos, ok := p.positions[symbol]
	if !ok {
		pos = &Position{Symbol: symbol}
		p.positions[symbol] = pos
	}

	switch {
	case pos.Quantity.IsZero():
		// Opening a fresh position: average_price is simply the fill price.
		pos.Quantity = fillQty
		pos.AveragePrice = fillPrice

	case sameSign(pos.Quantity, fillQty):
		// Same-direction fill: size-weighted mean of prior and new fills.
		priorNotional := pos.Quantity.Abs().Mul(pos.AveragePrice)
		fillNotional := fillQty.Abs().Mul(fillPrice)
		newQty := pos.Quantity.Add(fillQty)
		pos.AveragePrice = priorNotional.Add(fillNotional).Div(newQty.Abs())
		pos.Quantity = newQty

	default:
		newQty := pos.Quantity.Add(fillQty)
		switch {
		case newQty.IsZero():
			// Exact close.
			pos.Quantity = decimal.Zero
			pos.AveragePrice = decimal.Zero
		case sameSign(newQty, pos.Quantity):
			// Partial close: direction unchanged, average_price untouched.
			pos.Quantity = newQty
		default:
			// Sign flip: residual is a fresh position at the fill price.
			pos.Quantity = newQty
			pos.AveragePrice = fillPrice
		}
	}

	return *pos
}

// MarkToMarket returns cash + sum of quantity * mark over every held
// position, falling back to average_price for symbols missing from marks.
func (p *Portfolio) MarkToMarket(marks map[string]decimal.Decimal) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()

	equity := p.cash
	for symbol, pos := range p.positions {
		price, ok := marks[symbol]
		if !ok {
			price = pos.AveragePrice
		}
		equity = equity.Add(pos.Quantity.Mul(price))
	}
	return equity
}

func sameSign(a, b decimal.Decimal) bool {
	return a.Sign() == b.Sign()
}
