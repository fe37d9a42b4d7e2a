package dashboard

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/portfolio"
)

func TestBuildSnapshot_NoPositions(t *testing.T) {
	pf := portfolio.New(decimal.NewFromInt(1000))
	snap := BuildSnapshot(pf, map[string]decimal.Decimal{})

	if !snap.TotalBalance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected total_balance 1000, got %s", snap.TotalBalance)
	}
	if !snap.LockedBalance.IsZero() {
		t.Fatalf("expected locked_balance 0, got %s", snap.LockedBalance)
	}
	if len(snap.Assets) != 0 {
		t.Fatalf("expected no assets, got %d", len(snap.Assets))
	}
}

func TestBuildSnapshot_WithOpenPosition(t *testing.T) {
	pf := portfolio.New(decimal.NewFromInt(1000))
	pf.UpdateCash(decimal.NewFromInt(-500))
	pf.UpdatePosition("BTCUSDT", decimal.NewFromInt(5), decimal.NewFromInt(100))

	marks := map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(110)}
	snap := BuildSnapshot(pf, marks)

	asset, ok := snap.Assets["BTCUSDT"]
	if !ok {
		t.Fatal("expected BTCUSDT asset in snapshot")
	}
	if !asset.Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected quantity 5, got %s", asset.Quantity)
	}
	if !asset.MarketValue.Equal(decimal.NewFromInt(550)) {
		t.Fatalf("expected market_value 550, got %s", asset.MarketValue)
	}
	wantUnrealized := decimal.NewFromInt(50) // (110-100)*5
	if !snap.UnrealizedPnL.Equal(wantUnrealized) {
		t.Fatalf("expected unrealized_pnl 50, got %s", snap.UnrealizedPnL)
	}
}
