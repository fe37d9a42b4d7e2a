// Command backtest replays stored candles through the same strategy,
// risk-gate and portfolio wiring the live engine uses, and reports the
// resulting equity curve and headline performance metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/config"
	"github.com/nitinkhare/cryptoTradingEngine/internal/execution"
	"github.com/nitinkhare/cryptoTradingEngine/internal/marketdata"
	"github.com/nitinkhare/cryptoTradingEngine/internal/portfolio"
	"github.com/nitinkhare/cryptoTradingEngine/internal/risk"
	"github.com/nitinkhare/cryptoTradingEngine/internal/router"
	"github.com/nitinkhare/cryptoTradingEngine/internal/storage"
	"github.com/nitinkhare/cryptoTradingEngine/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config/config.json", "path to configuration file")
	symbol := flag.String("symbol", "", "symbol to backtest, e.g. BTCUSDT")
	interval := flag.String("interval", "1h", "candle interval: 1m, 5m, 15m, 1h, 1d")
	limit := flag.Int("limit", 1000, "number of trailing candles to replay")
	flag.Parse()

	_ = godotenv.Load()

	if *symbol == "" {
		fmt.Fprintln(os.Stderr, "--symbol is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	store := openStore(cfg, logger)
	if store == nil {
		fmt.Fprintln(os.Stderr, "no candle store available")
		os.Exit(1)
	}

	strategies, err := buildStrategies(cfg.Strategies)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build strategies: %v\n", err)
		os.Exit(1)
	}

	pf := portfolio.New(decimal.NewFromFloat(cfg.StartingCapital))
	gate := risk.NewGate(risk.Limits{
		MaxPositionPct:  cfg.Risk.MaxPositionPct,
		MaxDailyLossPct: cfg.Risk.MaxDailyLossPct,
		MaxPositions:    cfg.Risk.MaxPositions,
	}, pf.HeldSymbol)
	rt := router.New(false, router.LiveConfig{})

	loop := execution.NewLoop(strategies, pf, gate, rt, nil, logger)
	historical := marketdata.NewHistorical(store)
	bt := execution.NewBacktest(loop, historical)

	ctx := context.Background()
	result, err := bt.Run(ctx, *symbol, marketdata.Interval(*interval), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest failed: %v\n", err)
		os.Exit(1)
	}

	printReport(*symbol, cfg.RiskFreeRate, result)
}

func openStore(cfg *config.Config, logger zerolog.Logger) storage.Store {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.DatabaseURL != "" {
		s, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err == nil {
			return s
		}
		logger.Warn().Err(err).Msg("postgres unavailable, falling back to embedded sqlite store")
	}

	s, err := storage.NewSQLiteStore("engine.db")
	if err != nil {
		logger.Error().Err(err).Msg("sqlite store unavailable")
		return nil
	}
	return s
}

func buildStrategies(configs []config.StrategyConfig) ([]strategy.Strategy, error) {
	strategies := make([]strategy.Strategy, 0, len(configs))
	for _, sc := range configs {
		qty := decimal.NewFromFloat(sc.Quantity)
		switch sc.Kind {
		case "momentum":
			strategies = append(strategies, strategy.NewMomentum(sc.ID, sc.Window, sc.Threshold, qty))
		case "mean_reversion":
			strategies = append(strategies, strategy.NewMeanReversion(sc.ID, sc.Window, sc.StdDevFactor, sc.Threshold, qty))
		case "grid":
			strategies = append(strategies, strategy.NewGrid(sc.ID, sc.Spacing, sc.Levels, qty))
		default:
			return nil, fmt.Errorf("unsupported strategy kind %q", sc.Kind)
		}
	}
	return strategies, nil
}

func printReport(symbol string, riskFreeRate float64, result execution.BacktestResult) {
	totalReturn, _ := result.TotalReturn().Float64()

	fmt.Printf("=== Backtest Report: %s ===\n", symbol)
	fmt.Printf("Candles replayed:  %d\n", len(result.EquityCurve)-1)
	fmt.Printf("Signals executed:  %d\n", len(result.ExecutedSignals))
	fmt.Printf("Starting equity:   %s\n", result.EquityCurve[0].StringFixed(2))
	fmt.Printf("Ending equity:     %s\n", result.EquityCurve[len(result.EquityCurve)-1].StringFixed(2))
	fmt.Printf("Total return:      %.2f%%\n", totalReturn*100)
	fmt.Printf("Max drawdown:      %.2f%%\n", result.MaxDrawdown()*100)
	fmt.Printf("Sharpe ratio:      %.3f\n", result.SharpeRatio(riskFreeRate))
}
