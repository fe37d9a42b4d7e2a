package dashboard

import (
	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/portfolio"
)

// AssetSnapshot is one symbol's slice of the portfolio snapshot.
type AssetSnapshot struct {
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	MarketValue  decimal.Decimal `json:"market_value"`
}

// Snapshot is an in-process view of the portfolio state for dashboard
// clients; nothing in the engine builds or pushes one on its own.
// LockedBalance is the notional tied up in open positions; UnrealizedPnL
// sums (mark - average) * quantity across open positions that have a mark.
// BuildSnapshot walks the marks map, so a held symbol with no entry in
// marks is left out of Assets and UnrealizedPnL (it still counts at book
// value in TotalBalance).
type Snapshot struct {
	TotalBalance     decimal.Decimal          `json:"total_balance"`
	AvailableBalance decimal.Decimal          `json:"available_balance"`
	LockedBalance    decimal.Decimal          `json:"locked_balance"`
	UnrealizedPnL    decimal.Decimal          `json:"unrealized_pnl"`
	Assets           map[string]AssetSnapshot `json:"assets"`
}

// BuildSnapshot assembles a Snapshot from the portfolio's current state
// and the latest mark prices.
func BuildSnapshot(pf *portfolio.Portfolio, marks map[string]decimal.Decimal) Snapshot {
	equity := pf.MarkToMarket(marks)
	cash := pf.Cash()

	locked := equity.Sub(cash)
	if locked.IsNegative() {
		locked = decimal.Zero
	}

	assets := make(map[string]AssetSnapshot)
	unrealized := decimal.Zero
	for symbol := range marks {
		pos := pf.Position(symbol)
		if pos.Quantity.IsZero() {
			continue
		}
		mark, ok := marks[symbol]
		if !ok {
			mark = pos.AveragePrice
		}
		marketValue := pos.Quantity.Mul(mark)
		assets[symbol] = AssetSnapshot{
			Quantity:     pos.Quantity,
			AveragePrice: pos.AveragePrice,
			MarketValue:  marketValue,
		}
		unrealized = unrealized.Add(mark.Sub(pos.AveragePrice).Mul(pos.Quantity))
	}

	return Snapshot{
		TotalBalance:     equity,
		AvailableBalance: cash,
		LockedBalance:    locked,
		UnrealizedPnL:    unrealized,
		Assets:           assets,
	}
}
