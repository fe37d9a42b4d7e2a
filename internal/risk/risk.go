// Package risk implements the portfolio-wide risk gate.
//
// Design rules (from spec):
//   - Risk limits cannot be overridden by a strategy.
//   - Checks run in a fixed order; the earliest failing condition decides
//     the rejection reason, so reasons are deterministic and reproducible.
//   - The gate is pure given its limits and day anchor: no I/O, no side
//     effects beyond the anchor set by ResetDay.
package risk

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/strategy"
)

// Limits bounds the notional and concentration risk the gate enforces.
type Limits struct {
	// MaxPositionPct is the fraction of equity a single new notional may
	// occupy.
	MaxPositionPct float64

	// MaxDailyLossPct is the fraction below the day-anchor equity at
	// which signals are blocked.
	MaxDailyLossPct float64

	// MaxPositions caps the number of concurrent symbols with a non-zero
	// position.
	MaxPositions int
}

// Gate is the final check every Signal passes through before reaching the
// router. It is safe for concurrent use; Validate only reads limits and
// state, and ResetDay and UpdateLimits are the only mutators.
type Gate struct {
	mu         sync.RWMutex
	limits     Limits
	dayAnchor  decimal.Decimal
	anchorSet  bool
	heldSymbol func(symbol string) bool
}

// NewGate builds a risk gate. heldSymbol reports whether the portfolio
// already carries a non-zero position in symbol, used by the open-position
// count check; it must not block.
func NewGate(limits Limits, heldSymbol func(symbol string) bool) *Gate {
	return &Gate{limits: limits, heldSymbol: heldSymbol}
}

// UpdateLimits replaces the risk limits atomically, for config hot-reload.
func (g *Gate) UpdateLimits(limits Limits) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limits = limits
}

// ResetDay sets the equity anchor daily-loss checks are measured against.
func (g *Gate) ResetDay(anchorEquity decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dayAnchor = anchorEquity
	g.anchorSet = true
}

// Validate checks signal against marks and equity in the fixed order below;
// the first failing check decides the rejection reason:
//  1. marks[signal.Symbol] present, else "Missing mark price".
//  2. |signal.Quantity| * marks[symbol] <= equity * MaxPositionPct, else
//     "Position size exceeds risk limit".
//  3. the symbol is already held, or open-position count < MaxPositions,
//     else "Maximum concurrent positions reached".
//  4. DayAnchor unset, or 1 - equity/anchor <= MaxDailyLossPct, else
//     "Daily loss limit breached".
//  5. otherwise (true, "OK").
func (g *Gate) Validate(signal strategy.Signal, marks map[string]decimal.Decimal, equity decimal.Decimal, openPositions int) (bool, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	mark, ok := marks[signal.Symbol]
	if !ok {
		return false, "Missing mark price"
	}

	notional := signal.Quantity.Abs().Mul(mark)
	maxNotional := equity.Mul(decimal.NewFromFloat(g.limits.MaxPositionPct))
	if notional.GreaterThan(maxNotional) {
		return false, "Position size exceeds risk limit"
	}

	alreadyHeld := g.heldSymbol != nil && g.heldSymbol(signal.Symbol)
	if !alreadyHeld && openPositions >= g.limits.MaxPositions {
		return false, "Maximum concurrent positions reached"
	}

	if g.anchorSet && !g.dayAnchor.IsZero() {
		drawdown, _ := decimal.NewFromInt(1).Sub(equity.Div(g.dayAnchor)).Float64()
		if drawdown > g.limits.MaxDailyLossPct {
			return false, "Daily loss limit breached"
		}
	}

	return true, "OK"
}
