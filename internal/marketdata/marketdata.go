// Package marketdata produces the lazy sequence of ticks that drives the
// trading loop, plus the historical candle fetch used by the backtest
// harness.
//
// Design rules (from spec):
//   - Market data is a single writer of price observations.
//   - Strategies never talk to an exchange directly.
//   - A typed Tick crosses the boundary once; nothing downstream sees a
//     loose map.
package marketdata

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Tick is one trade-price observation for a symbol at a point in time.
// Immutable once constructed.
type Tick struct {
	Symbol    string
	Price     decimal.Decimal
	Timestamp time.Time
	Volume    decimal.Decimal
}

// Candle is a single OHLCV bar.
type Candle struct {
	Symbol    string
	OpenTime  time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Interval enumerates the closed set of candle intervals the history
// service understands.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
)

// Duration returns the wall-clock span of one candle of this interval.
// Returns an error for any interval outside the closed enumeration.
func (i Interval) Duration() (time.Duration, error) {
	switch i {
	case Interval1m:
		return time.Minute, nil
	case Interval5m:
		return 5 * time.Minute, nil
	case Interval15m:
		return 15 * time.Minute, nil
	case Interval1h:
		return time.Hour, nil
	case Interval1d:
		return 24 * time.Hour, nil
	default:
		return 0, ErrUnsupportedInterval
	}
}

// Handler receives ticks published for a subscribed symbol.
type Handler func(ctx context.Context, tick Tick)

// Source produces a live, infinite sequence of ticks for a requested
// symbol set. Implementations are either backed by a real exchange stream
// or a synthetic random walk.
//
// Subscribe must be called before Start; Start blocks (running the
// fan-out) until the context is cancelled or Stop is called.
type Source interface {
	// Subscribe registers handler to receive every tick for symbol.
	// Safe to call for multiple symbols before Start.
	Subscribe(symbol string, handler Handler)

	// Start begins producing ticks. It blocks until the context is
	// cancelled or Stop is called from another goroutine.
	Start(ctx context.Context) error

	// Stop disconnects the underlying stream and causes Start to return.
	Stop()
}
