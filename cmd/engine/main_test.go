package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nitinkhare/cryptoTradingEngine/internal/config"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func TestBuildStrategies_ConstructsOneOfEachKind(t *testing.T) {
	configs := []config.StrategyConfig{
		{ID: "mom-1", Kind: "momentum", Window: 20, Threshold: 0.02, Quantity: 0.01},
		{ID: "mr-1", Kind: "mean_reversion", Window: 30, StdDevFactor: 0.01, Threshold: 2.0, Quantity: 0.01},
		{ID: "grid-1", Kind: "grid", Spacing: 100, Levels: 5, Quantity: 0.01},
	}

	strategies, err := buildStrategies(configs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(strategies) != 3 {
		t.Fatalf("expected 3 strategies, got %d", len(strategies))
	}
	for i, want := range []string{"mom-1", "mr-1", "grid-1"} {
		if got := strategies[i].ID(); got != want {
			t.Errorf("strategy %d: expected id %q, got %q", i, want, got)
		}
	}
}

func TestBuildStrategies_RejectsUnknownKind(t *testing.T) {
	_, err := buildStrategies([]config.StrategyConfig{
		{ID: "bogus", Kind: "scalper"},
	})
	if err == nil {
		t.Fatal("expected error for unknown strategy kind")
	}
}

func TestWSBaseURL_SelectsTestnetOrMainnet(t *testing.T) {
	if got := wsBaseURL(config.NetworkTestnet); got != "wss://testnet.binance.vision" {
		t.Errorf("expected testnet URL, got %s", got)
	}
	if got := wsBaseURL(config.NetworkMainnet); got != "wss://stream.binance.com:9443" {
		t.Errorf("expected mainnet URL, got %s", got)
	}
	if got := wsBaseURL(""); got != "wss://stream.binance.com:9443" {
		t.Errorf("expected mainnet URL as default, got %s", got)
	}
}

func TestRouterBackendName_ReflectsCredentials(t *testing.T) {
	cfg := &config.Config{Router: config.RouterConfig{}}
	if got := routerBackendName(cfg); got != "simulated" {
		t.Errorf("expected simulated backend with no credentials, got %s", got)
	}

	cfg.Router.APIKey = "key"
	cfg.Router.APISecret = "secret"
	if got := routerBackendName(cfg); got != "live" {
		t.Errorf("expected live backend with credentials, got %s", got)
	}
}

func TestOpenStore_FallsBackToSQLiteWhenNoDatabaseURL(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg := &config.Config{}
	logger := newLogger("error")
	store := openStore(cfg, logger)
	if store == nil {
		t.Fatal("expected a sqlite fallback store, got nil")
	}
}

func TestLoadAndRunStatus_SmokeTest(t *testing.T) {
	path := writeTestConfig(t, `{
		"symbols": ["BTCUSDT"],
		"starting_capital": 1000,
		"use_testnet": true,
		"risk": {"max_position_pct": 0.1, "max_daily_loss_pct": 0.05, "max_positions": 5},
		"strategies": [{"id": "mom-1", "kind": "momentum", "window": 20, "threshold": 0.02, "quantity": 0.01}]
	}`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	strategies, err := buildStrategies(cfg.Strategies)
	if err != nil {
		t.Fatalf("unexpected error building strategies: %v", err)
	}
	if len(strategies) != 1 {
		t.Fatalf("expected 1 strategy, got %d", len(strategies))
	}

	// runStatus should not panic with a nil store.
	runStatus(cfg, nil)
}
