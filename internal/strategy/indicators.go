// Package strategy - indicators.go provides the rolling price window shared
// by the momentum and mean-reversion strategies.
//
// push and observe mutate a window; mean is deterministic — given the same
// window contents, it returns the same result.
package strategy

import (
	"sync"

	"github.com/shopspring/decimal"
)

// window is a fixed-length sliding buffer of recent prices for one symbol.
// Not safe for concurrent use from multiple goroutines; a strategy's
// per-symbol windows are only ever touched from its own OnData, which
// runs to completion before the next tick per the single-threaded
// state contract.
type window struct {
	size   int
	prices []decimal.Decimal
}

func newWindow(size int) *window {
	return &window{size: size, prices: make([]decimal.Decimal, 0, size)}
}

// push appends price, evicting the oldest entry once the window is full.
func (w *window) push(price decimal.Decimal) {
	w.prices = append(w.prices, price)
	if len(w.prices) > w.size {
		w.prices = w.prices[len(w.prices)-w.size:]
	}
}

// full reports whether the window has accumulated size observations.
func (w *window) full() bool {
	return len(w.prices) == w.size
}

// mean returns the arithmetic mean of the window's contents. Callers must
// check full() first; mean of an empty window is zero.
func (w *window) mean() decimal.Decimal {
	if len(w.prices) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, p := range w.prices {
		sum = sum.Add(p)
	}
	return sum.Div(decimal.NewFromInt(int64(len(w.prices))))
}

// windowSet manages one window per symbol behind a mutex, since OnData for
// a given strategy only ever runs for one symbol at a time but the map
// itself may be read by diagnostics/tests concurrently.
type windowSet struct {
	mu      sync.Mutex
	size    int
	windows map[string]*window
}

func newWindowSet(size int) *windowSet {
	return &windowSet{size: size, windows: make(map[string]*window)}
}

// observe pushes price into symbol's window and, once the window has
// accumulated size observations, returns the mean including this price.
// full is false (and mean is zero) while still filling the window.
func (s *windowSet) observe(symbol string, price decimal.Decimal) (mean decimal.Decimal, full bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[symbol]
	if !ok {
		w = newWindow(s.size)
		s.windows[symbol] = w
	}
	w.push(price)
	if !w.full() {
		return decimal.Zero, false
	}
	return w.mean(), true
}
