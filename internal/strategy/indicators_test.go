package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestWindow_NotFullUntilSizeReached(t *testing.T) {
	w := newWindow(3)
	if w.full() {
		t.Fatal("expected empty window to not be full")
	}
	w.push(decimal.NewFromInt(1))
	w.push(decimal.NewFromInt(2))
	if w.full() {
		t.Fatal("expected window with 2/3 entries to not be full")
	}
	w.push(decimal.NewFromInt(3))
	if !w.full() {
		t.Fatal("expected window with 3/3 entries to be full")
	}
}

func TestWindow_EvictsOldestOnOverflow(t *testing.T) {
	w := newWindow(2)
	w.push(decimal.NewFromInt(1))
	w.push(decimal.NewFromInt(2))
	w.push(decimal.NewFromInt(3))

	if !w.full() {
		t.Fatal("expected window to stay full after overflow")
	}
	got := w.mean()
	want := decimal.NewFromFloat(2.5) // (2+3)/2
	if !got.Equal(want) {
		t.Fatalf("expected mean %s, got %s", want, got)
	}
}

func TestWindowSet_ObserveIncludesCurrentPriceInMean(t *testing.T) {
	ws := newWindowSet(2)

	mean, full := ws.observe("BTCUSDT", decimal.NewFromInt(10))
	if full {
		t.Fatal("expected window not full after first observation")
	}
	if !mean.IsZero() {
		t.Fatalf("expected zero mean while filling, got %s", mean)
	}

	mean, full = ws.observe("BTCUSDT", decimal.NewFromInt(20))
	if !full {
		t.Fatal("expected window full after second observation")
	}
	want := decimal.NewFromInt(15) // (10+20)/2, includes the just-pushed price
	if !mean.Equal(want) {
		t.Fatalf("expected mean %s, got %s", want, mean)
	}
}

func TestWindowSet_TracksSeparateWindowsPerSymbol(t *testing.T) {
	ws := newWindowSet(1)

	meanA, fullA := ws.observe("BTCUSDT", decimal.NewFromInt(100))
	meanB, fullB := ws.observe("ETHUSDT", decimal.NewFromInt(50))

	if !fullA || !fullB {
		t.Fatal("expected both single-entry windows to be full immediately")
	}
	if !meanA.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected BTCUSDT mean 100, got %s", meanA)
	}
	if !meanB.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected ETHUSDT mean 50, got %s", meanB)
	}
}
