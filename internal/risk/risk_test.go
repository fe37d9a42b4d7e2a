package risk

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/strategy"
)

func buySignal(symbol string, qty, price float64) (strategy.Signal, map[string]decimal.Decimal) {
	s := strategy.Signal{
		Symbol:   symbol,
		Side:     strategy.SideBuy,
		Quantity: decimal.NewFromFloat(qty),
	}
	marks := map[string]decimal.Decimal{symbol: decimal.NewFromFloat(price)}
	return s, marks
}

func TestGate_RejectsMissingMarkPrice(t *testing.T) {
	g := NewGate(Limits{MaxPositionPct: 1, MaxPositions: 10}, nil)

	sig := strategy.Signal{Symbol: "BTCUSDT", Side: strategy.SideBuy, Quantity: decimal.NewFromInt(1)}
	allowed, reason := g.Validate(sig, map[string]decimal.Decimal{}, decimal.NewFromInt(10000), 0)
	if allowed {
		t.Fatal("expected rejection")
	}
	if reason != "Missing mark price" {
		t.Fatalf("expected 'Missing mark price', got %q", reason)
	}
}

func TestGate_RejectsPositionSizeOverLimit(t *testing.T) {
	g := NewGate(Limits{MaxPositionPct: 0.05, MaxPositions: 10}, nil)

	sig, marks := buySignal("ETHUSDT", 1, 2000)
	allowed, reason := g.Validate(sig, marks, decimal.NewFromInt(10000), 0)
	if allowed {
		t.Fatal("expected rejection")
	}
	if reason != "Position size exceeds risk limit" {
		t.Fatalf("expected 'Position size exceeds risk limit', got %q", reason)
	}
}

func TestGate_RejectsMaxConcurrentPositions(t *testing.T) {
	g := NewGate(Limits{MaxPositionPct: 1, MaxPositions: 2}, func(string) bool { return false })

	sig, marks := buySignal("ETHUSDT", 1, 100)
	allowed, reason := g.Validate(sig, marks, decimal.NewFromInt(10000), 2)
	if allowed {
		t.Fatal("expected rejection")
	}
	if reason != "Maximum concurrent positions reached" {
		t.Fatalf("expected 'Maximum concurrent positions reached', got %q", reason)
	}
}

func TestGate_AllowsAddingToAlreadyHeldSymbolAtPositionCap(t *testing.T) {
	g := NewGate(Limits{MaxPositionPct: 1, MaxPositions: 1}, func(symbol string) bool { return symbol == "ETHUSDT" })

	sig, marks := buySignal("ETHUSDT", 1, 100)
	allowed, reason := g.Validate(sig, marks, decimal.NewFromInt(10000), 1)
	if !allowed {
		t.Fatalf("expected approval for already-held symbol, got rejection: %s", reason)
	}
}

func TestGate_RejectsDailyLossBreach(t *testing.T) {
	g := NewGate(Limits{MaxPositionPct: 1, MaxPositions: 10, MaxDailyLossPct: 0.05}, nil)
	g.ResetDay(decimal.NewFromInt(10000))

	sig, marks := buySignal("BTCUSDT", 0.001, 100)
	allowed, reason := g.Validate(sig, marks, decimal.NewFromInt(9000), 0)
	if allowed {
		t.Fatal("expected rejection")
	}
	if reason != "Daily loss limit breached" {
		t.Fatalf("expected 'Daily loss limit breached', got %q", reason)
	}
}

func TestGate_DailyLossChecksRunLastInPriorityOrder(t *testing.T) {
	// Position size would also fail, but it is checked before daily loss,
	// so its reason must win regardless of the anchor breach.
	g := NewGate(Limits{MaxPositionPct: 0.01, MaxPositions: 10, MaxDailyLossPct: 0.05}, nil)
	g.ResetDay(decimal.NewFromInt(10000))

	sig, marks := buySignal("BTCUSDT", 1, 2000)
	allowed, reason := g.Validate(sig, marks, decimal.NewFromInt(9000), 0)
	if allowed {
		t.Fatal("expected rejection")
	}
	if reason != "Position size exceeds risk limit" {
		t.Fatalf("expected earliest-failing reason 'Position size exceeds risk limit', got %q", reason)
	}
}

func TestGate_ApprovesWithinAllLimits(t *testing.T) {
	g := NewGate(Limits{MaxPositionPct: 0.5, MaxPositions: 5, MaxDailyLossPct: 0.1}, nil)
	g.ResetDay(decimal.NewFromInt(10000))

	sig, marks := buySignal("BTCUSDT", 0.01, 2000)
	allowed, reason := g.Validate(sig, marks, decimal.NewFromInt(10000), 0)
	if !allowed {
		t.Fatalf("expected approval, got rejection: %s", reason)
	}
	if reason != "OK" {
		t.Fatalf("expected reason 'OK', got %q", reason)
	}
}

func TestGate_NoDayAnchorSkipsDailyLossCheck(t *testing.T) {
	g := NewGate(Limits{MaxPositionPct: 1, MaxPositions: 10, MaxDailyLossPct: 0.01}, nil)

	sig, marks := buySignal("BTCUSDT", 0.001, 100)
	allowed, _ := g.Validate(sig, marks, decimal.NewFromInt(1), 0)
	if !allowed {
		t.Fatal("expected approval when day anchor has never been set")
	}
}
