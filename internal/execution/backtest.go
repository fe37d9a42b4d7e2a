package execution

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/analytics"
	"github.com/nitinkhare/cryptoTradingEngine/internal/marketdata"
	"github.com/nitinkhare/cryptoTradingEngine/internal/strategy"
)

// BacktestResult is the outcome of driving a Loop over a finite candle
// sequence.
type BacktestResult struct {
	EquityCurve     []decimal.Decimal
	ExecutedSignals []strategy.Signal
}

// TotalReturn is (last-first)/first over EquityCurve, or zero when fewer
// than two samples exist.
func (r BacktestResult) TotalReturn() decimal.Decimal {
	return analytics.TotalReturn(r.EquityCurve)
}

// SharpeRatio computes the annualized Sharpe ratio of the backtest's
// per-tick returns against riskFree.
func (r BacktestResult) SharpeRatio(riskFree float64) float64 {
	return analytics.NewMetrics(r.EquityCurve).SharpeRatio(riskFree)
}

// MaxDrawdown returns the largest peak-to-trough fractional decline
// across the backtest's equity curve.
func (r BacktestResult) MaxDrawdown() float64 {
	return analytics.MaxDrawdown(r.EquityCurve)
}

// Backtest drives a Loop with a finite candle sequence instead of a live
// source, reusing the same risk, router and portfolio contracts.
type Backtest struct {
	loop       *Loop
	historical *marketdata.Historical
}

// NewBacktest builds a backtest harness over loop, pulling candles via
// historical.
func NewBacktest(loop *Loop, historical *marketdata.Historical) *Backtest {
	return &Backtest{loop: loop, historical: historical}
}

// Run fetches limit candles for (symbol, interval) and feeds each as a
// synthetic tick (price = candle.close, timestamp = candle.open_time)
// through the loop. The initial equity sample is taken before any candle
// is processed; a sample is appended after each candle using the
// post-execution mark-to-market value.
func (b *Backtest) Run(ctx context.Context, symbol string, interval marketdata.Interval, limit int) (BacktestResult, error) {
	candles, err := b.historical.FetchCandles(ctx, symbol, interval, limit)
	if err != nil {
		return BacktestResult{}, err
	}

	result := BacktestResult{
		EquityCurve: make([]decimal.Decimal, 0, len(candles)+1),
	}
	result.EquityCurve = append(result.EquityCurve, b.loop.Equity())

	for _, candle := range candles {
		tick := marketdata.Tick{
			Symbol:    symbol,
			Price:     candle.Close,
			Timestamp: candle.OpenTime,
		}
		executed := b.loop.ProcessTick(ctx, tick)
		result.ExecutedSignals = append(result.ExecutedSignals, executed...)
		result.EquityCurve = append(result.EquityCurve, b.loop.Equity())
	}

	return result, nil
}
