package marketdata

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Synthetic is the fallback Source used when exchange credentials are
// absent (see NewSource). It maintains a
// per-symbol drifting price and yields one tick per second with a
// bounded random walk, mirroring the original system's mock stream.
type Synthetic struct {
	rng    *rand.Rand
	mu     sync.Mutex
	prices map[string]decimal.Decimal

	handlersMu sync.Mutex
	handlers   map[string][]Handler

	tickInterval time.Duration
	stepBound    float64 // max absolute per-tick price change

	stopCh  chan struct{}
	stopped bool
}

// NewSynthetic builds a synthetic source seeded from the current time.
func NewSynthetic() *Synthetic {
	return &Synthetic{
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		prices:       make(map[string]decimal.Decimal),
		handlers:     make(map[string][]Handler),
		tickInterval: time.Second,
		stepBound:    0.5,
		stopCh:       make(chan struct{}),
	}
}

func (s *Synthetic) Subscribe(symbol string, handler Handler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers[symbol] = append(s.handlers[symbol], handler)

	s.mu.Lock()
	if _, ok := s.prices[symbol]; !ok {
		base := 10_000 + s.rng.Float64()*50_000
		s.prices[symbol] = decimal.NewFromFloat(base).Round(2)
	}
	s.mu.Unlock()
}

// Start runs the random walk, emitting one tick per subscribed symbol per
// tickInterval, until the context is cancelled or Stop is called.
func (s *Synthetic) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case now := <-ticker.C:
			s.emitAll(ctx, now)
		}
	}
}

func (s *Synthetic) emitAll(ctx context.Context, now time.Time) {
	s.handlersMu.Lock()
	symbols := make([]string, 0, len(s.handlers))
	for symbol := range s.handlers {
		symbols = append(symbols, symbol)
	}
	s.handlersMu.Unlock()

	for _, symbol := range symbols {
		tick := s.step(symbol, now)

		s.handlersMu.Lock()
		handlers := append([]Handler(nil), s.handlers[symbol]...)
		s.handlersMu.Unlock()

		for _, h := range handlers {
			h(ctx, tick)
		}
	}
}

func (s *Synthetic) step(symbol string, now time.Time) Tick {
	s.mu.Lock()
	defer s.mu.Unlock()

	change := (s.rng.Float64()*2 - 1) * s.stepBound
	price := s.prices[symbol].Add(decimal.NewFromFloat(change)).Round(2)
	if price.IsNegative() {
		price = decimal.Zero
	}
	s.prices[symbol] = price

	return Tick{
		Symbol:    symbol,
		Price:     price,
		Timestamp: now,
		Volume:    decimal.Zero,
	}
}

// Stop causes Start to return.
func (s *Synthetic) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stopCh)
}
