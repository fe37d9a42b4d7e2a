// Package storage defines the persistence interfaces and types for the
// trading engine: cached OHLCV candles (for the backtest harness), fill
// records and equity samples (for analytics and the dashboard).
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/marketdata"
)

// FillRecord is one executed order, as applied to the portfolio.
type FillRecord struct {
	ID         int64
	StrategyID string
	Symbol     string
	Side       string // "BUY" or "SELL"
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Timestamp  time.Time
}

// EquitySample is one point on the equity curve; the engine records one
// from its periodic scheduler job.
type EquitySample struct {
	Timestamp time.Time
	Equity    decimal.Decimal
}

// Store is the complete persistence interface the engine depends on. It
// satisfies marketdata.CandleStore so the backtest harness's Historical
// fetcher can be backed directly by a Store.
type Store interface {
	GetCandles(ctx context.Context, symbol string, interval marketdata.Interval, limit int) ([]marketdata.Candle, error)
	SaveCandles(ctx context.Context, candles []marketdata.Candle) error

	SaveFill(ctx context.Context, fill FillRecord) error
	ListFills(ctx context.Context, symbol string, limit int) ([]FillRecord, error)

	SaveEquitySample(ctx context.Context, sample EquitySample) error
	GetEquityCurve(ctx context.Context, from, to time.Time) ([]EquitySample, error)

	Ping(ctx context.Context) error
}
