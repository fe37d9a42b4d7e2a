// Package execution wires the market-data source, strategy runtime, risk
// gate, order router and portfolio into the live trading loop and its
// finite-candle backtest counterpart.
//
// Design rules (from spec):
//   - Per symbol, mark update -> equity computation -> strategy fan-out ->
//     router submissions -> portfolio mutation is linear; a later tick for
//     the same symbol cannot overtake an earlier one's portfolio mutation.
//   - Strategy signals within one tick are submitted to the router in
//     strategy-registration order; within a strategy, in list order.
//   - The portfolio is mutated only here, after every suspension point for
//     the tick has resolved, so concurrent strategy execution within a
//     tick never observes a half-applied fill.
package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/marketdata"
	"github.com/nitinkhare/cryptoTradingEngine/internal/metrics"
	"github.com/nitinkhare/cryptoTradingEngine/internal/portfolio"
	"github.com/nitinkhare/cryptoTradingEngine/internal/risk"
	"github.com/nitinkhare/cryptoTradingEngine/internal/router"
	"github.com/nitinkhare/cryptoTradingEngine/internal/strategy"
)

// Loop owns the mark map and the registered strategy list, and drives one
// tick at a time through strategies, the risk gate, the router and the
// portfolio.
type Loop struct {
	strategies []strategy.Strategy
	portfolio  *portfolio.Portfolio
	gate       *risk.Gate
	router     router.Router
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	marksMu sync.Mutex // held only across the synchronous section of handleTick
	marks   map[string]decimal.Decimal

	onFill func(sig strategy.Signal, result router.Result)
}

// OnFill registers fn to be called synchronously after every signal the
// router fills. fn runs inside the tick's synchronous section, so it must
// not block. Intended for persisting fills to storage or updating alerts;
// pass nil (the default) to disable.
func (l *Loop) OnFill(fn func(sig strategy.Signal, result router.Result)) {
	l.onFill = fn
}

// NewLoop builds a Loop. Strategies are dispatched in the order given.
func NewLoop(strategies []strategy.Strategy, pf *portfolio.Portfolio, gate *risk.Gate, rt router.Router, m *metrics.Metrics, logger zerolog.Logger) *Loop {
	return &Loop{
		strategies: strategies,
		portfolio:  pf,
		gate:       gate,
		router:     rt,
		metrics:    m,
		logger:     logger,
		marks:      make(map[string]decimal.Decimal),
	}
}

// Start captures the day anchor, starts every strategy, subscribes one
// handler per symbol and blocks running the source until ctx is cancelled
// or Stop is called on source.
func (l *Loop) Start(ctx context.Context, symbols []string, source marketdata.Source) error {
	equity := l.portfolio.MarkToMarket(l.marks)
	l.gate.ResetDay(equity)

	for _, s := range l.strategies {
		if err := s.OnStart(ctx); err != nil {
			l.logger.Error().Err(err).Str("strategy", s.ID()).Msg("strategy OnStart failed")
		}
	}

	for _, symbol := range symbols {
		source.Subscribe(symbol, l.handleTick)
	}

	err := source.Start(ctx)

	for _, s := range l.strategies {
		if stopErr := s.OnStop(ctx); stopErr != nil {
			l.logger.Error().Err(stopErr).Str("strategy", s.ID()).Msg("strategy OnStop failed")
		}
	}

	return err
}

// handleTick is the Handler passed to the live market-data source.
func (l *Loop) handleTick(ctx context.Context, tick marketdata.Tick) {
	l.ProcessTick(ctx, tick)
}

// ProcessTick runs one tick through the full pipeline — mark update,
// equity computation, concurrent strategy fan-out, ordered risk-gated
// submission, and portfolio mutation — and returns the signals that were
// approved and submitted. The backtest harness calls this directly, once
// per candle; the live handler calls it and discards the return.
func (l *Loop) ProcessTick(ctx context.Context, tick marketdata.Tick) []strategy.Signal {
	l.marksMu.Lock()
	defer l.marksMu.Unlock()

	l.marks[tick.Symbol] = tick.Price
	equity := l.portfolio.MarkToMarket(l.marks)
	if l.metrics != nil {
		l.metrics.ObserveTick(tick.Symbol)
		l.metrics.SetEquity(equity)
	}

	signals := l.fanOut(ctx, tick)

	var executed []strategy.Signal
	for _, sig := range signals {
		if l.submitSignal(ctx, sig, tick.Price, equity) {
			executed = append(executed, sig)
		}
	}
	return executed
}

// Equity returns the current mark-to-market equity using the loop's own
// mark map, for callers that sample equity between ticks (the backtest
// harness's initial sample).
func (l *Loop) Equity() decimal.Decimal {
	l.marksMu.Lock()
	defer l.marksMu.Unlock()
	return l.portfolio.MarkToMarket(l.marks)
}

// fanOut dispatches tick to every strategy concurrently, isolates each
// strategy's error via OnError, and concatenates the results in
// strategy-registration order.
func (l *Loop) fanOut(ctx context.Context, tick marketdata.Tick) []strategy.Signal {
	results := make([][]strategy.Signal, len(l.strategies))

	var wg sync.WaitGroup
	wg.Add(len(l.strategies))
	for i, s := range l.strategies {
		go func(i int, s strategy.Strategy) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					l.logger.Error().Interface("panic", r).Str("strategy", s.ID()).Msg("strategy OnData panicked")
					s.OnError(fmt.Errorf("strategy %s panicked: %v", s.ID(), r))
				}
			}()

			signals, err := s.OnData(ctx, tick)
			if err != nil {
				if l.metrics != nil {
					l.metrics.ObserveStrategyError(s.ID())
				}
				s.OnError(err)
				return
			}
			results[i] = signals
		}(i, s)
	}
	wg.Wait()

	var all []strategy.Signal
	for _, signals := range results {
		all = append(all, signals...)
	}
	return all
}

// submitSignal validates sig against the current marks and equity and, if
// approved, submits it to the router and applies the fill to the
// portfolio. Reports whether the signal was executed.
func (l *Loop) submitSignal(ctx context.Context, sig strategy.Signal, tickPrice, equity decimal.Decimal) bool {
	allowed, reason := l.gate.Validate(sig, l.marks, equity, l.portfolio.OpenPositions())
	if l.metrics != nil {
		l.metrics.ObserveSignal(sig.StrategyID, allowed)
	}
	if !allowed {
		l.logger.Debug().Str("symbol", sig.Symbol).Str("strategy", sig.StrategyID).Str("reason", reason).Msg("signal rejected by risk gate")
		return false
	}

	req := router.Request{
		Symbol:     sig.Symbol,
		Side:       router.Side(sig.Side),
		Quantity:   sig.Quantity,
		LimitPrice: tickPrice,
		Type:       router.TypeMarket,
	}

	result, err := l.router.Submit(ctx, req)
	if err != nil {
		l.logger.Error().Err(err).Str("symbol", sig.Symbol).Msg("router rejected order")
		return false
	}
	if l.metrics != nil {
		l.metrics.ObserveOrder(sig.StrategyID, string(result.Status))
	}

	fillPrice := result.FilledPrice
	if fillPrice.IsZero() {
		fillPrice = tickPrice
	}
	notional := result.FilledQuantity.Mul(fillPrice)

	switch sig.Side {
	case strategy.SideBuy:
		l.portfolio.UpdateCash(notional.Neg())
		l.portfolio.UpdatePosition(sig.Symbol, result.FilledQuantity, tickPrice)
	case strategy.SideSell:
		l.portfolio.UpdateCash(notional)
		l.portfolio.UpdatePosition(sig.Symbol, result.FilledQuantity.Neg(), tickPrice)
	}

	if l.onFill != nil {
		l.onFill(sig, result)
	}
	return true
}
