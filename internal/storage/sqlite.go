// Package storage - sqlite.go implements Store against an embedded sqlite
// file via gorm, for local development and the backtest harness where a
// full Postgres instance is unavailable.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nitinkhare/cryptoTradingEngine/internal/marketdata"
)

type candleModel struct {
	ID       uint `gorm:"primaryKey"`
	Symbol   string `gorm:"index:idx_candle_lookup"`
	Interval string `gorm:"index:idx_candle_lookup"`
	OpenTime time.Time `gorm:"index:idx_candle_lookup"`
	Open     string
	High     string
	Low      string
	Close    string
	Volume   string
}

type fillModel struct {
	ID         uint `gorm:"primaryKey"`
	StrategyID string
	Symbol     string `gorm:"index"`
	Side       string
	Quantity   string
	Price      string
	Timestamp  time.Time
}

type equitySampleModel struct {
	ID        uint `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"index"`
	Equity    string
}

// SQLiteStore implements Store against a local sqlite file via gorm.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (creating if absent) a sqlite database at path and
// migrates its schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&candleModel{}, &fillModel{}, &equitySampleModel{}); err != nil {
		return nil, fmt.Errorf("sqlite store: migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetCandles(ctx context.Context, symbol string, interval marketdata.Interval, limit int) ([]marketdata.Candle, error) {
	var rows []candleModel
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND interval = ?", symbol, string(interval)).
		Order("open_time DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sqlite store: get candles: %w", err)
	}

	candles := make([]marketdata.Candle, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		out := len(rows) - 1 - i
		candles[out] = marketdata.Candle{
			Symbol:   row.Symbol,
			OpenTime: row.OpenTime,
		}
		candles[out].Open, _ = decimal.NewFromString(row.Open)
		candles[out].High, _ = decimal.NewFromString(row.High)
		candles[out].Low, _ = decimal.NewFromString(row.Low)
		candles[out].Close, _ = decimal.NewFromString(row.Close)
		candles[out].Volume, _ = decimal.NewFromString(row.Volume)
	}
	return candles, nil
}

func (s *SQLiteStore) SaveCandles(ctx context.Context, candles []marketdata.Candle) error {
	for _, c := range candles {
		row := candleModel{
			Symbol:   c.Symbol,
			OpenTime: c.OpenTime,
			Open:     c.Open.String(),
			High:     c.High.String(),
			Low:      c.Low.String(),
			Close:    c.Close.String(),
			Volume:   c.Volume.String(),
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return fmt.Errorf("sqlite store: save candle: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveFill(ctx context.Context, fill FillRecord) error {
	row := fillModel{
		StrategyID: fill.StrategyID,
		Symbol:     fill.Symbol,
		Side:       fill.Side,
		Quantity:   fill.Quantity.String(),
		Price:      fill.Price.String(),
		Timestamp:  fill.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("sqlite store: save fill: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListFills(ctx context.Context, symbol string, limit int) ([]FillRecord, error) {
	var rows []fillModel
	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list fills: %w", err)
	}

	fills := make([]FillRecord, len(rows))
	for i, row := range rows {
		fills[i] = FillRecord{
			ID:         int64(row.ID),
			StrategyID: row.StrategyID,
			Symbol:     row.Symbol,
			Side:       row.Side,
			Timestamp:  row.Timestamp,
		}
		fills[i].Quantity, _ = decimal.NewFromString(row.Quantity)
		fills[i].Price, _ = decimal.NewFromString(row.Price)
	}
	return fills, nil
}

func (s *SQLiteStore) SaveEquitySample(ctx context.Context, sample EquitySample) error {
	row := equitySampleModel{Timestamp: sample.Timestamp, Equity: sample.Equity.String()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("sqlite store: save equity sample: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetEquityCurve(ctx context.Context, from, to time.Time) ([]EquitySample, error) {
	var rows []equitySampleModel
	err := s.db.WithContext(ctx).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sqlite store: get equity curve: %w", err)
	}

	samples := make([]EquitySample, len(rows))
	for i, row := range rows {
		samples[i].Timestamp = row.Timestamp
		samples[i].Equity, _ = decimal.NewFromString(row.Equity)
	}
	return samples, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
