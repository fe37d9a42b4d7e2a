package strategy

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMeanReversion_BuyWhenOversold(t *testing.T) {
	r := NewMeanReversion("mr-1", 3, 0.01, 2.0, decimal.NewFromInt(1))
	_ = r.OnStart(context.Background())

	for _, p := range []float64{100, 100, 100} {
		if _, err := r.OnData(context.Background(), tickAt("ETHUSDT", p)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// The window becomes [100, 100, 97]: mean 99, std-dev proxy 0.99,
	// z = (97 - 99) / 0.99 ≈ -2.02, past -zThreshold of -2 -> BUY.
	signals, err := r.OnData(context.Background(), tickAt("ETHUSDT", 97))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 1 || signals[0].Side != SideBuy {
		t.Fatalf("expected one BUY signal, got %v", signals)
	}
}

func TestMeanReversion_SellWhenOverbought(t *testing.T) {
	r := NewMeanReversion("mr-1", 3, 0.01, 2.0, decimal.NewFromInt(1))
	_ = r.OnStart(context.Background())

	for _, p := range []float64{100, 100, 100} {
		if _, err := r.OnData(context.Background(), tickAt("ETHUSDT", p)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// The window becomes [100, 100, 104]: mean ≈ 101.33, std-dev proxy
	// ≈ 1.0133, z ≈ 2.63, past zThreshold of 2 -> SELL.
	signals, err := r.OnData(context.Background(), tickAt("ETHUSDT", 104))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 1 || signals[0].Side != SideSell {
		t.Fatalf("expected one SELL signal, got %v", signals)
	}
}

func TestMeanReversion_NoSignalWithinBand(t *testing.T) {
	r := NewMeanReversion("mr-1", 3, 0.01, 2.0, decimal.NewFromInt(1))
	_ = r.OnStart(context.Background())

	for _, p := range []float64{100, 100, 100} {
		if _, err := r.OnData(context.Background(), tickAt("ETHUSDT", p)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	signals, err := r.OnData(context.Background(), tickAt("ETHUSDT", 100.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 0 {
		t.Fatalf("expected no signal within band, got %v", signals)
	}
}
