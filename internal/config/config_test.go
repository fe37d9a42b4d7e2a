package config

import (
	"os"
	"path/filepath"
	"testing"
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

func validConfigJSON() string {
	return `{
		"symbols": ["BTCUSDT", "ETHUSDT"],
		"starting_capital": 10000,
		"use_testnet": true,
		"risk_free_rate": 0.02,
		"risk": {
			"max_position_pct": 0.1,
			"max_daily_loss_pct": 0.05,
			"max_positions": 5
		},
		"router": {
			"stream_type": "mini_ticker",
			"network": "testnet"
		},
		"strategies": [
			{"id": "mom-1", "kind": "momentum", "window": 20, "threshold": 0.01, "quantity": 0.01}
		],
		"database_url": "postgres://localhost/test"
	}`
}

func TestConfig_LoadValid(t *testing.T) {
	path := writeTestConfig(t, validConfigJSON())

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Symbols) != 2 {
		t.Errorf("expected 2 symbols, got %d", len(cfg.Symbols))
	}
	if cfg.StartingCapital != 10000 {
		t.Errorf("expected starting_capital 10000, got %f", cfg.StartingCapital)
	}
	if !cfg.UseTestnet {
		t.Error("expected use_testnet true")
	}
	if cfg.Router.CredentialsPresent() {
		t.Error("expected no credentials set from this fixture")
	}
}

func TestConfig_DefaultsUseTestnetTrueWhenOmitted(t *testing.T) {
	path := writeTestConfig(t, `{
		"symbols": ["BTCUSDT"],
		"starting_capital": 1000,
		"risk": {"max_position_pct": 0.1, "max_daily_loss_pct": 0.05, "max_positions": 5}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.UseTestnet {
		t.Error("expected use_testnet to default true when omitted")
	}
}

func TestConfig_RejectsEmptySymbols(t *testing.T) {
	path := writeTestConfig(t, `{
		"symbols": [],
		"starting_capital": 1000,
		"risk": {"max_position_pct": 0.1, "max_daily_loss_pct": 0.05, "max_positions": 5}
	}`)

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for empty symbols")
	}
}

func TestConfig_RejectsZeroCapital(t *testing.T) {
	path := writeTestConfig(t, `{
		"symbols": ["BTCUSDT"],
		"starting_capital": 0,
		"risk": {"max_position_pct": 0.1, "max_daily_loss_pct": 0.05, "max_positions": 5}
	}`)

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for zero starting capital")
	}
}

func TestConfig_RejectsInvalidRiskLimits(t *testing.T) {
	path := writeTestConfig(t, `{
		"symbols": ["BTCUSDT"],
		"starting_capital": 1000,
		"risk": {"max_position_pct": 1.5, "max_daily_loss_pct": 0.05, "max_positions": 5}
	}`)

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for max_position_pct out of range")
	}
}

func TestConfig_RejectsUnknownStrategyKind(t *testing.T) {
	path := writeTestConfig(t, `{
		"symbols": ["BTCUSDT"],
		"starting_capital": 1000,
		"risk": {"max_position_pct": 0.1, "max_daily_loss_pct": 0.05, "max_positions": 5},
		"strategies": [{"id": "x", "kind": "bogus"}]
	}`)

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for unknown strategy kind")
	}
}

func TestConfig_RejectsInvalidNetwork(t *testing.T) {
	path := writeTestConfig(t, `{
		"symbols": ["BTCUSDT"],
		"starting_capital": 1000,
		"risk": {"max_position_pct": 0.1, "max_daily_loss_pct": 0.05, "max_positions": 5},
		"router": {"network": "bogus"}
	}`)

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid network")
	}
}

func TestConfig_EnvOverrideAPICredentials(t *testing.T) {
	path := writeTestConfig(t, validConfigJSON())

	os.Setenv("ENGINE_API_KEY", "env-key")
	os.Setenv("ENGINE_API_SECRET", "env-secret")
	defer os.Unsetenv("ENGINE_API_KEY")
	defer os.Unsetenv("ENGINE_API_SECRET")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Router.CredentialsPresent() {
		t.Error("expected env-provided credentials to be present")
	}
	if cfg.Router.APIKey != "env-key" {
		t.Errorf("expected api key from env, got %s", cfg.Router.APIKey)
	}
}

func TestConfig_EnvOverrideDatabaseURL(t *testing.T) {
	path := writeTestConfig(t, validConfigJSON())

	os.Setenv("ENGINE_DATABASE_URL", "postgres://override/test")
	defer os.Unsetenv("ENGINE_DATABASE_URL")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://override/test" {
		t.Errorf("expected overridden database_url, got %s", cfg.DatabaseURL)
	}
}

func TestRouterConfig_CredentialsAbsentWhenEitherFieldMissing(t *testing.T) {
	r := RouterConfig{APIKey: "key-only"}
	if r.CredentialsPresent() {
		t.Error("expected credentials absent when secret is missing")
	}
}
