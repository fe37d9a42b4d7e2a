// Package storage - postgres.go implements Store against Postgres via pgx.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/marketdata"
)

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pool against connStr and verifies connectivity.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	if connStr == "" {
		return nil, fmt.Errorf("postgres store: connection string is required")
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres store: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool's connections.
func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) GetCandles(ctx context.Context, symbol string, interval marketdata.Interval, limit int) ([]marketdata.Candle, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT symbol, open_time, open, high, low, close, volume
		FROM candles
		WHERE symbol = $1 AND interval = $2
		ORDER BY open_time DESC
		LIMIT $3`, symbol, string(interval), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: get candles: %w", err)
	}
	defer rows.Close()

	var candles []marketdata.Candle
	for rows.Next() {
		var c marketdata.Candle
		var open, high, low, close, volume string
		if err := rows.Scan(&c.Symbol, &c.OpenTime, &open, &high, &low, &close, &volume); err != nil {
			return nil, fmt.Errorf("postgres store: scan candle: %w", err)
		}
		c.Open, _ = decimal.NewFromString(open)
		c.High, _ = decimal.NewFromString(high)
		c.Low, _ = decimal.NewFromString(low)
		c.Close, _ = decimal.NewFromString(close)
		c.Volume, _ = decimal.NewFromString(volume)
		candles = append(candles, c)
	}
	// Results come back newest-first; reverse to chronological order.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, rows.Err()
}

func (s *PostgresStore) SaveCandles(ctx context.Context, candles []marketdata.Candle) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range candles {
		// interval is not part of marketdata.Candle; callers always save
		// candles fetched at a single known interval, inferred by the caller
		// via a separate SaveCandlesForInterval if that distinction matters.
		_, err := tx.Exec(ctx, `
			INSERT INTO candles (symbol, open_time, open, high, low, close, volume)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (symbol, open_time) DO NOTHING`,
			c.Symbol, c.OpenTime, c.Open.String(), c.High.String(), c.Low.String(), c.Close.String(), c.Volume.String())
		if err != nil {
			return fmt.Errorf("postgres store: insert candle: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) SaveFill(ctx context.Context, fill FillRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fills (strategy_id, symbol, side, quantity, price, ts)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		fill.StrategyID, fill.Symbol, fill.Side, fill.Quantity.String(), fill.Price.String(), fill.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres store: save fill: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListFills(ctx context.Context, symbol string, limit int) ([]FillRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, strategy_id, symbol, side, quantity, price, ts
		FROM fills
		WHERE symbol = $1
		ORDER BY ts DESC
		LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list fills: %w", err)
	}
	defer rows.Close()

	var fills []FillRecord
	for rows.Next() {
		var f FillRecord
		var qty, price string
		if err := rows.Scan(&f.ID, &f.StrategyID, &f.Symbol, &f.Side, &qty, &price, &f.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres store: scan fill: %w", err)
		}
		f.Quantity, _ = decimal.NewFromString(qty)
		f.Price, _ = decimal.NewFromString(price)
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

func (s *PostgresStore) SaveEquitySample(ctx context.Context, sample EquitySample) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO equity_curve (ts, equity) VALUES ($1, $2)`,
		sample.Timestamp, sample.Equity.String())
	if err != nil {
		return fmt.Errorf("postgres store: save equity sample: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEquityCurve(ctx context.Context, from, to time.Time) ([]EquitySample, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ts, equity FROM equity_curve
		WHERE ts BETWEEN $1 AND $2
		ORDER BY ts ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres store: get equity curve: %w", err)
	}
	defer rows.Close()

	var samples []EquitySample
	for rows.Next() {
		var sample EquitySample
		var equity string
		if err := rows.Scan(&sample.Timestamp, &equity); err != nil {
			return nil, fmt.Errorf("postgres store: scan equity sample: %w", err)
		}
		sample.Equity, _ = decimal.NewFromString(equity)
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
