package execution

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/marketdata"
	"github.com/nitinkhare/cryptoTradingEngine/internal/portfolio"
	"github.com/nitinkhare/cryptoTradingEngine/internal/risk"
	"github.com/nitinkhare/cryptoTradingEngine/internal/router"
	"github.com/nitinkhare/cryptoTradingEngine/internal/strategy"
)

type fakeStrategy struct {
	id      string
	signals []strategy.Signal
	err     error
	calls   int
	onError error
}

func (f *fakeStrategy) ID() string   { return f.id }
func (f *fakeStrategy) Name() string { return f.id }
func (f *fakeStrategy) OnStart(context.Context) error { return nil }
func (f *fakeStrategy) OnStop(context.Context) error  { return nil }
func (f *fakeStrategy) OnData(context.Context, marketdata.Tick) ([]strategy.Signal, error) {
	f.calls++
	return f.signals, f.err
}
func (f *fakeStrategy) OnError(err error) { f.onError = err }

type fakeRouter struct {
	mu       sync.Mutex
	requests []router.Request
	result   router.Result
	err      error
}

func (r *fakeRouter) Submit(_ context.Context, req router.Request) (router.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.err != nil {
		return router.Result{}, r.err
	}
	return r.result, nil
}

func testTick(symbol string, price float64) marketdata.Tick {
	return marketdata.Tick{Symbol: symbol, Price: decimal.NewFromFloat(price), Timestamp: time.Now()}
}

func TestProcessTick_ApprovedSignalUpdatesPortfolio(t *testing.T) {
	pf := portfolio.New(decimal.NewFromInt(1000))
	gate := risk.NewGate(risk.Limits{MaxPositionPct: 1, MaxPositions: 10}, pf.HeldSymbol)
	rt := &fakeRouter{result: router.Result{
		Status:         router.StatusFilled,
		FilledQuantity: decimal.NewFromInt(1),
		FilledPrice:    decimal.NewFromFloat(101.5),
	}}
	s := &fakeStrategy{id: "s1", signals: []strategy.Signal{
		{StrategyID: "s1", Symbol: "BTCUSDT", Side: strategy.SideBuy, Quantity: decimal.NewFromInt(1)},
	}}

	loop := NewLoop([]strategy.Strategy{s}, pf, gate, rt, nil, zerolog.Nop())
	executed := loop.ProcessTick(context.Background(), testTick("BTCUSDT", 100))

	if len(executed) != 1 {
		t.Fatalf("expected 1 executed signal, got %d", len(executed))
	}
	if !pf.Cash().Equal(decimal.NewFromFloat(898.5)) {
		t.Fatalf("expected cash 898.5, got %s", pf.Cash())
	}
	pos := pf.Position("BTCUSDT")
	if !pos.AveragePrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected average_price pinned to tick price 100, got %s", pos.AveragePrice)
	}
}

func TestProcessTick_RejectedSignalLeavesPortfolioUntouched(t *testing.T) {
	pf := portfolio.New(decimal.NewFromInt(1000))
	gate := risk.NewGate(risk.Limits{MaxPositionPct: 0.0001, MaxPositions: 10}, pf.HeldSymbol)
	rt := &fakeRouter{}
	s := &fakeStrategy{id: "s1", signals: []strategy.Signal{
		{StrategyID: "s1", Symbol: "BTCUSDT", Side: strategy.SideBuy, Quantity: decimal.NewFromInt(1)},
	}}

	loop := NewLoop([]strategy.Strategy{s}, pf, gate, rt, nil, zerolog.Nop())
	executed := loop.ProcessTick(context.Background(), testTick("BTCUSDT", 100))

	if len(executed) != 0 {
		t.Fatalf("expected no executed signals, got %d", len(executed))
	}
	if !pf.Cash().Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected cash unchanged at 1000, got %s", pf.Cash())
	}
	if len(rt.requests) != 0 {
		t.Fatalf("expected router never called, got %d requests", len(rt.requests))
	}
}

func TestProcessTick_StrategyErrorIsolatedFromOthers(t *testing.T) {
	pf := portfolio.New(decimal.NewFromInt(1000))
	gate := risk.NewGate(risk.Limits{MaxPositionPct: 1, MaxPositions: 10}, pf.HeldSymbol)
	rt := &fakeRouter{result: router.Result{Status: router.StatusFilled, FilledQuantity: decimal.NewFromInt(1), FilledPrice: decimal.NewFromInt(100)}}

	failing := &fakeStrategy{id: "broken", err: errors.New("boom")}
	healthy := &fakeStrategy{id: "ok", signals: []strategy.Signal{
		{StrategyID: "ok", Symbol: "BTCUSDT", Side: strategy.SideBuy, Quantity: decimal.NewFromInt(1)},
	}}

	loop := NewLoop([]strategy.Strategy{failing, healthy}, pf, gate, rt, nil, zerolog.Nop())
	executed := loop.ProcessTick(context.Background(), testTick("BTCUSDT", 100))

	if failing.onError == nil {
		t.Fatal("expected OnError to be called on the failing strategy")
	}
	if len(executed) != 1 {
		t.Fatalf("expected the healthy strategy's signal to still execute, got %d", len(executed))
	}
}

func TestProcessTick_RouterErrorSkipsPortfolioMutation(t *testing.T) {
	pf := portfolio.New(decimal.NewFromInt(1000))
	gate := risk.NewGate(risk.Limits{MaxPositionPct: 1, MaxPositions: 10}, pf.HeldSymbol)
	rt := &fakeRouter{err: &router.Error{Symbol: "BTCUSDT", Cause: errors.New("exchange down")}}
	s := &fakeStrategy{id: "s1", signals: []strategy.Signal{
		{StrategyID: "s1", Symbol: "BTCUSDT", Side: strategy.SideBuy, Quantity: decimal.NewFromInt(1)},
	}}

	loop := NewLoop([]strategy.Strategy{s}, pf, gate, rt, nil, zerolog.Nop())
	executed := loop.ProcessTick(context.Background(), testTick("BTCUSDT", 100))

	if len(executed) != 0 {
		t.Fatalf("expected no executed signals when the router errors, got %d", len(executed))
	}
	if !pf.Cash().Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected cash unchanged at 1000, got %s", pf.Cash())
	}
}

func TestProcessTick_SellReducesPositionAndIncreasesCash(t *testing.T) {
	pf := portfolio.New(decimal.NewFromInt(1000))
	pf.UpdatePosition("BTCUSDT", decimal.NewFromInt(2), decimal.NewFromInt(100))
	gate := risk.NewGate(risk.Limits{MaxPositionPct: 1, MaxPositions: 10}, pf.HeldSymbol)
	rt := &fakeRouter{result: router.Result{Status: router.StatusFilled, FilledQuantity: decimal.NewFromInt(1), FilledPrice: decimal.NewFromInt(110)}}
	s := &fakeStrategy{id: "s1", signals: []strategy.Signal{
		{StrategyID: "s1", Symbol: "BTCUSDT", Side: strategy.SideSell, Quantity: decimal.NewFromInt(1)},
	}}

	loop := NewLoop([]strategy.Strategy{s}, pf, gate, rt, nil, zerolog.Nop())
	loop.ProcessTick(context.Background(), testTick("BTCUSDT", 105))

	pos := pf.Position("BTCUSDT")
	if !pos.Quantity.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected quantity 1, got %s", pos.Quantity)
	}
	if !pf.Cash().Equal(decimal.NewFromInt(1110)) {
		t.Fatalf("expected cash 1110 (1000 + 1*110), got %s", pf.Cash())
	}
}
