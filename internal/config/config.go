// Package config provides application-wide configuration management.
// All configuration is loaded from a JSON file with environment variable
// overrides; nothing is hardcoded in strategy or router logic. Reading
// .env files into the process environment is the caller's job (see
// cmd/engine and cmd/backtest) — this package only reads os.Getenv.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nitinkhare/cryptoTradingEngine/internal/risk"
)

// Network selects which exchange environment the live router calls.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// StreamType selects the market-data stream granularity.
type StreamType string

const (
	StreamMiniTicker StreamType = "mini_ticker"
	StreamTicker     StreamType = "ticker"
)

// Config holds all system configuration, loaded once at startup and
// passed as read-only to every component.
type Config struct {
	// Symbols is the set of symbols the engine trades.
	Symbols []string `json:"symbols"`

	// StartingCapital seeds the portfolio's cash balance.
	StartingCapital float64 `json:"starting_capital"`

	// UseTestnet defaults to true; false only when explicitly configured
	// for mainnet trading.
	UseTestnet bool `json:"use_testnet"`

	// RiskFreeRate is unused by the core; pass-through for downstream
	// analytics (Sharpe ratio).
	RiskFreeRate float64 `json:"risk_free_rate"`

	Risk       RiskConfig       `json:"risk"`
	Router     RouterConfig     `json:"router"`
	Strategies []StrategyConfig `json:"strategies"`

	// DatabaseURL is the Postgres connection string for the history
	// store. Empty selects the embedded sqlite store instead.
	DatabaseURL string `json:"database_url"`

	// LogLevel is a zerolog level name (e.g. "debug", "info", "warn").
	LogLevel string `json:"log_level"`
}

// RiskConfig configures the risk gate. Hot-reloadable via watcher.go.
type RiskConfig struct {
	// MaxPositionPct is the fraction of equity a new notional may occupy.
	MaxPositionPct float64 `json:"max_position_pct"`

	// MaxDailyLossPct is the fraction below the day-anchor equity at
	// which signals are blocked.
	MaxDailyLossPct float64 `json:"max_daily_loss_pct"`

	// MaxPositions caps concurrent symbols with a non-zero position.
	MaxPositions int `json:"max_positions"`

	// CircuitBreaker sets the failure thresholds at which the breaker
	// trips, and its cooldown.
	CircuitBreaker risk.CircuitBreakerConfig `json:"circuit_breaker"`
}

// RouterConfig configures the order router's live backend. Credentials
// absent selects the simulated backend and the synthetic market-data
// source instead.
type RouterConfig struct {
	APIKey         string     `json:"api_key"`
	APISecret      string     `json:"api_secret"`
	RecvWindowMS   int        `json:"recv_window_ms"`
	RequestTimeout int        `json:"request_timeout_seconds"`
	StreamType     StreamType `json:"stream_type"`
	Network        Network    `json:"network"`
}

// CredentialsPresent reports whether both API key and secret are set,
// the signal the engine uses to select the live backend and source.
func (r RouterConfig) CredentialsPresent() bool {
	return r.APIKey != "" && r.APISecret != ""
}

// StrategyConfig describes one strategy instance to construct. Kind
// selects momentum / mean_reversion / grid; the remaining fields are
// interpreted per kind (unused fields for a given kind are ignored).
type StrategyConfig struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Window int    `json:"window"`

	// Threshold is the fractional deviation from the window mean required
	// to signal (momentum), or the z-score threshold in units of
	// StdDevFactor (mean_reversion).
	Threshold float64 `json:"threshold"`

	// StdDevFactor is the fraction of the window mean treated as one
	// standard deviation. Used only by mean_reversion.
	StdDevFactor float64 `json:"std_dev_factor"`

	// Spacing and Levels configure grid only.
	Spacing float64 `json:"spacing"`
	Levels  int     `json:"levels"`

	Quantity float64 `json:"quantity"`
}

// Load reads configuration from a JSON file. Environment variables
// override file values where applicable.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", absPath, err)
	}

	cfg := Config{UseTestnet: true}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse json: %w", err)
	}

	if v := os.Getenv("ENGINE_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("ENGINE_API_KEY"); v != "" {
		cfg.Router.APIKey = v
	}
	if v := os.Getenv("ENGINE_API_SECRET"); v != "" {
		cfg.Router.APISecret = v
	}
	if v := os.Getenv("ENGINE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols must not be empty")
	}
	if c.StartingCapital <= 0 {
		return fmt.Errorf("starting_capital must be positive, got %f", c.StartingCapital)
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 1 {
		return fmt.Errorf("risk.max_position_pct must be in (0, 1], got %f", c.Risk.MaxPositionPct)
	}
	if c.Risk.MaxDailyLossPct <= 0 || c.Risk.MaxDailyLossPct > 1 {
		return fmt.Errorf("risk.max_daily_loss_pct must be in (0, 1], got %f", c.Risk.MaxDailyLossPct)
	}
	if c.Risk.MaxPositions <= 0 {
		return fmt.Errorf("risk.max_positions must be positive, got %d", c.Risk.MaxPositions)
	}
	if c.Router.StreamType != "" && c.Router.StreamType != StreamMiniTicker && c.Router.StreamType != StreamTicker {
		return fmt.Errorf("router.stream_type must be 'mini_ticker' or 'ticker', got %q", c.Router.StreamType)
	}
	if c.Router.Network != "" && c.Router.Network != NetworkMainnet && c.Router.Network != NetworkTestnet {
		return fmt.Errorf("router.network must be 'mainnet' or 'testnet', got %q", c.Router.Network)
	}
	for _, s := range c.Strategies {
		switch s.Kind {
		case "momentum", "mean_reversion", "grid":
		default:
			return fmt.Errorf("strategy %q: unsupported kind %q", s.ID, s.Kind)
		}
	}
	return nil
}
