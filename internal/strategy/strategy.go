// Package strategy hosts the strategy runtime: the polymorphic interface
// every strategy implements, the Signal type strategies produce, and the
// built-in momentum / mean-reversion / grid strategies.
//
// Design rules (from spec):
//   - A strategy is single-threaded with respect to its own state: OnData
//     runs to completion before the next tick for that strategy.
//   - Strategies may produce zero or more signals per tick; signals are
//     ephemeral — they exist only until the loop rejects or submits them.
//   - Exceptions raised by OnData are isolated per strategy and delivered
//     to OnError; the strategy is not removed.
package strategy

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/marketdata"
)

// Side is the direction of a Signal.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Signal is a strategy's intent to trade, not yet risk-checked.
type Signal struct {
	ID         string
	StrategyID string
	Symbol     string
	Side       Side
	Quantity   decimal.Decimal
	Confidence float64
	Metadata   map[string]float64
}

// Strategy is the closed interface every strategy implements — built-in
// or user-supplied. No deep hierarchies: variants differ only in OnData.
type Strategy interface {
	// ID returns a unique identifier used as the StrategyID on its signals
	// and in logging.
	ID() string

	// Name returns a human-readable name.
	Name() string

	// OnStart is called once, sequentially with other strategies, before
	// the data source begins producing ticks.
	OnStart(ctx context.Context) error

	// OnStop is called once the stream has been drained, sequentially in
	// registration order.
	OnStop(ctx context.Context) error

	// OnData is invoked once per tick and returns zero or more signals.
	// It must not block on anything but CPU-bound work: the fan-out has
	// no per-strategy timeout.
	OnData(ctx context.Context, tick marketdata.Tick) ([]Signal, error)

	// OnError receives errors raised by OnData, isolated from other
	// strategies.
	OnError(err error)
}

// Base provides the running-flag lifecycle bookkeeping shared by every
// built-in strategy so each implementation only needs to supply OnData.
type Base struct {
	running bool
}

// OnStart marks the strategy as running.
func (b *Base) OnStart(context.Context) error {
	b.running = true
	return nil
}

// OnStop marks the strategy as stopped.
func (b *Base) OnStop(context.Context) error {
	b.running = false
	return nil
}

// Running reports whether OnStart has been called without a matching
// OnStop. OnData implementations must return no signals when false.
func (b *Base) Running() bool {
	return b.running
}

// OnError is a no-op default; strategies that want custom handling
// (alerting, metrics) override it.
func (b *Base) OnError(error) {}
