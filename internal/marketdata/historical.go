package marketdata

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// CandleStore is the subset of the history service the Historical fetcher
// needs: read cached candles, and cache freshly synthesized ones back.
// storage.Store implements this.
type CandleStore interface {
	GetCandles(ctx context.Context, symbol string, interval Interval, limit int) ([]Candle, error)
	SaveCandles(ctx context.Context, candles []Candle) error
}

// Historical serves finite, chronologically ordered candle sequences for
// the backtest harness, backed by persistent storage with a synthetic
// fallback when storage has nothing cached.
type Historical struct {
	store     CandleStore
	saveChunk int
}

// NewHistorical builds a Historical fetcher. store may be nil, in which
// case every request is synthesized and never cached.
func NewHistorical(store CandleStore) *Historical {
	return &Historical{store: store, saveChunk: 500}
}

// FetchCandles returns limit candles for (symbol, interval), most recent
// last. Unsupported intervals fail fast per §4.D.
func (h *Historical) FetchCandles(ctx context.Context, symbol string, interval Interval, limit int) ([]Candle, error) {
	step, err := interval.Duration()
	if err != nil {
		return nil, err
	}

	if h.store != nil {
		cached, err := h.store.GetCandles(ctx, symbol, interval, limit)
		if err == nil && len(cached) >= limit {
			return cached, nil
		}
	}

	candles := synthesizeCandles(symbol, step, limit)

	if h.store != nil {
		for _, chunk := range chunked(candles, h.saveChunk) {
			if err := h.store.SaveCandles(ctx, chunk); err != nil {
				return nil, fmt.Errorf("marketdata: cache synthesized candles: %w", err)
			}
		}
	}

	return candles, nil
}

// synthesizeCandles builds a finite, chronologically ordered candle
// sequence identical in shape to the live synthetic fallback: a bounded
// random walk, one bar per step, ending at "now".
func synthesizeCandles(symbol string, step time.Duration, limit int) []Candle {
	rng := rand.New(rand.NewSource(seedFor(symbol)))
	now := time.Now().Truncate(step)
	price := 10_000 + rng.Float64()*50_000

	candles := make([]Candle, limit)
	for i := limit - 1; i >= 0; i-- {
		open := price
		change := (rng.Float64()*2 - 1) * (price * 0.01)
		closePx := open + change
		high := maxOf(open, closePx) * 1.002
		low := minOf(open, closePx) * 0.998
		candles[i] = Candle{
			Symbol:   symbol,
			OpenTime: now.Add(-time.Duration(limit-1-i) * step),
			Open:     decimal.NewFromFloat(open).Round(2),
			High:     decimal.NewFromFloat(high).Round(2),
			Low:      decimal.NewFromFloat(low).Round(2),
			Close:    decimal.NewFromFloat(closePx).Round(2),
			Volume:   decimal.NewFromFloat(1000 + rng.Float64()*500).Round(2),
		}
		price = closePx
	}
	return candles
}

// seedFor derives a deterministic RNG seed from the symbol so repeated
// calls for the same symbol within a process drift consistently.
func seedFor(symbol string) int64 {
	var seed int64
	for _, r := range symbol {
		seed = seed*31 + int64(r)
	}
	if seed == 0 {
		seed = 1
	}
	return seed
}

func maxOf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minOf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// chunked splits candles into slices of at most size, preserving order.
// Ported from the original system's utils.chunked helper.
func chunked(candles []Candle, size int) [][]Candle {
	if size <= 0 {
		return [][]Candle{candles}
	}
	var chunks [][]Candle
	for len(candles) > 0 {
		if len(candles) <= size {
			chunks = append(chunks, candles)
			break
		}
		chunks = append(chunks, candles[:size])
		candles = candles[size:]
	}
	return chunks
}
