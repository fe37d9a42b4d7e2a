// Command engine is the entry point for the crypto trading engine.
//
// It wires together configuration, market data, strategies, the risk
// gate, the order router and the portfolio into a single execution loop,
// then runs that loop until the process receives a termination signal.
//
// Modes:
//   - "status": print configuration and storage connectivity, then exit.
//   - "live":   run the execution loop against the configured market-data
//     source until SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/alerts"
	"github.com/nitinkhare/cryptoTradingEngine/internal/config"
	"github.com/nitinkhare/cryptoTradingEngine/internal/execution"
	"github.com/nitinkhare/cryptoTradingEngine/internal/marketdata"
	"github.com/nitinkhare/cryptoTradingEngine/internal/metrics"
	"github.com/nitinkhare/cryptoTradingEngine/internal/portfolio"
	"github.com/nitinkhare/cryptoTradingEngine/internal/risk"
	"github.com/nitinkhare/cryptoTradingEngine/internal/router"
	"github.com/nitinkhare/cryptoTradingEngine/internal/scheduler"
	"github.com/nitinkhare/cryptoTradingEngine/internal/storage"
	"github.com/nitinkhare/cryptoTradingEngine/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config/config.json", "path to configuration file")
	mode := flag.String("mode", "status", "run mode: live | status")
	confirmLive := flag.Bool("confirm-live", false, "required safety flag to run against mainnet")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info().Strs("symbols", cfg.Symbols).Float64("starting_capital", cfg.StartingCapital).
		Bool("use_testnet", cfg.UseTestnet).Msg("config loaded")

	// ── Mainnet safety gate ──
	// Both --confirm-live AND ENGINE_LIVE_CONFIRMED=true are required to
	// trade against mainnet. Testnet and simulated runs need neither.
	if !cfg.UseTestnet && cfg.Router.CredentialsPresent() {
		envConfirmed := os.Getenv("ENGINE_LIVE_CONFIRMED") == "true"
		if !*confirmLive || !envConfirmed {
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "  MAINNET TRADING BLOCKED - two confirmations are required:")
			fmt.Fprintln(os.Stderr, "    1. CLI flag:  --confirm-live")
			fmt.Fprintln(os.Stderr, "    2. Env var:   ENGINE_LIVE_CONFIRMED=true")
			fmt.Fprintln(os.Stderr, "")
			os.Exit(1)
		}
		logger.Warn().Msg("MAINNET MODE ACTIVE - real orders will be placed on the exchange")
	}

	store := openStore(cfg, logger)
	if store != nil {
		defer closeStore(store, logger)
	}

	switch *mode {
	case "status":
		runStatus(cfg, store)
	case "live":
		runLive(cfg, *configPath, store, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode: %s (expected: live, status)\n", *mode)
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()
}

// openStore connects to Postgres when DatabaseURL is set, else falls back
// to an embedded sqlite store so the engine always has somewhere to
// persist candles, fills and the equity curve.
func openStore(cfg *config.Config, logger zerolog.Logger) storage.Store {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.DatabaseURL != "" {
		s, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error().Err(err).Msg("postgres unavailable, falling back to embedded sqlite store")
		} else {
			logger.Info().Msg("connected to postgres store")
			return s
		}
	}

	s, err := storage.NewSQLiteStore("engine.db")
	if err != nil {
		logger.Error().Err(err).Msg("sqlite store unavailable, persistence disabled")
		return nil
	}
	logger.Info().Msg("using embedded sqlite store")
	return s
}

func closeStore(store storage.Store, logger zerolog.Logger) {
	type closer interface{ Close() error }
	if c, ok := store.(closer); ok {
		if err := c.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing store")
		}
	}
}

func runStatus(cfg *config.Config, store storage.Store) {
	fmt.Println("=== Engine Status ===")
	fmt.Printf("Symbols: %v\n", cfg.Symbols)
	fmt.Printf("Starting capital: %.2f\n", cfg.StartingCapital)
	fmt.Printf("Network: %v (testnet=%v)\n", cfg.Router.Network, cfg.UseTestnet)
	fmt.Printf("Router backend: %s\n", routerBackendName(cfg))
	fmt.Printf("Strategies: %d configured\n", len(cfg.Strategies))

	if store == nil {
		fmt.Println("Storage: unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		fmt.Printf("Storage: unreachable (%v)\n", err)
	} else {
		fmt.Println("Storage: connected")
	}
}

func routerBackendName(cfg *config.Config) string {
	if cfg.Router.CredentialsPresent() {
		return "live"
	}
	return "simulated"
}

func runLive(cfg *config.Config, configPath string, store storage.Store, logger zerolog.Logger) {
	strategies, err := buildStrategies(cfg.Strategies)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build strategies")
	}
	logger.Info().Int("count", len(strategies)).Msg("strategies loaded")

	pf := portfolio.New(decimal.NewFromFloat(cfg.StartingCapital))

	gate := risk.NewGate(risk.Limits{
		MaxPositionPct:  cfg.Risk.MaxPositionPct,
		MaxDailyLossPct: cfg.Risk.MaxDailyLossPct,
		MaxPositions:    cfg.Risk.MaxPositions,
	}, pf.HeldSymbol)

	cb := risk.NewCircuitBreaker(cfg.Risk.CircuitBreaker, logger)
	alertMgr := alerts.NewManager(256)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	rt := router.New(cfg.Router.CredentialsPresent(), router.LiveConfig{
		APIKey:         cfg.Router.APIKey,
		APISecret:      cfg.Router.APISecret,
		RecvWindow:     time.Duration(cfg.Router.RecvWindowMS) * time.Millisecond,
		RequestTimeout: time.Duration(cfg.Router.RequestTimeout) * time.Second,
		Network:        router.Network(cfg.Router.Network),
	})

	source := marketdata.NewSource(cfg.Router.CredentialsPresent(), marketdata.LiveConfig{
		BaseWSURL:  wsBaseURL(cfg.Router.Network),
		StreamType: marketdata.StreamType(cfg.Router.StreamType),
	}, logger)

	loop := execution.NewLoop(strategies, pf, gate, rt, m, logger)
	loop.OnFill(func(sig strategy.Signal, result router.Result) {
		onFill(store, logger, alertMgr, sig, result)
	})

	sched := scheduler.New(logger)
	registerDailyJobs(sched, gate, pf, cb, logger)
	registerPeriodicJobs(sched, store, pf, cb, alertMgr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	watcher := config.NewWatcher(configPath, cfg, logger)
	watcher.OnChange(func(_, newCfg *config.Config) {
		gate.UpdateLimits(risk.Limits{
			MaxPositionPct:  newCfg.Risk.MaxPositionPct,
			MaxDailyLossPct: newCfg.Risk.MaxDailyLossPct,
			MaxPositions:    newCfg.Risk.MaxPositions,
		})
		cb.UpdateConfig(newCfg.Risk.CircuitBreaker)
	})
	if err := watcher.Start(); err != nil {
		logger.Warn().Err(err).Msg("config watcher failed to start")
	}
	defer watcher.Stop()

	go sched.RunDailyAt(ctx, 0)
	go sched.RunPeriodicEvery(ctx, 30*time.Second)

	logger.Info().Msg("starting execution loop")
	if err := loop.Start(ctx, cfg.Symbols, source); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("execution loop exited with error")
	}
	logger.Info().Msg("engine shut down")
}

func wsBaseURL(network config.Network) string {
	if network == config.NetworkTestnet {
		return "wss://testnet.binance.vision"
	}
	return "wss://stream.binance.com:9443"
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

// onFill persists a fill and raises an alert for every executed signal.
// Runs synchronously inside the tick's critical section, so it must not
// block; storage failures are logged, never fatal.
func onFill(store storage.Store, logger zerolog.Logger, alertMgr *alerts.Manager, sig strategy.Signal, result router.Result) {
	logger.Info().
		Str("symbol", sig.Symbol).
		Str("side", string(sig.Side)).
		Str("strategy", sig.StrategyID).
		Str("status", string(result.Status)).
		Str("qty", result.FilledQuantity.String()).
		Str("price", result.FilledPrice.String()).
		Msg("signal filled")

	alertMgr.Emit(alerts.Alert{
		Message: fmt.Sprintf("%s %s %s filled %s@%s", sig.StrategyID, sig.Side, sig.Symbol,
			result.FilledQuantity.String(), result.FilledPrice.String()),
		Level:     alerts.LevelInfo,
		CreatedAt: time.Now(),
	})

	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	fill := storage.FillRecord{
		StrategyID: sig.StrategyID,
		Symbol:     sig.Symbol,
		Side:       string(sig.Side),
		Quantity:   result.FilledQuantity,
		Price:      result.FilledPrice,
		Timestamp:  time.Now(),
	}
	if err := store.SaveFill(ctx, fill); err != nil {
		logger.Error().Err(err).Msg("failed to persist fill")
	}
}

// registerDailyJobs sets up the once-per-UTC-day job that resets the risk
// gate's daily-loss anchor to the current equity and clears the circuit
// breaker's accumulated failure counts for the new day.
func registerDailyJobs(sched *scheduler.Scheduler, gate *risk.Gate, pf *portfolio.Portfolio, cb *risk.CircuitBreaker, logger zerolog.Logger) {
	sched.RegisterJob(scheduler.Job{
		Name: "reset_daily_anchor",
		Type: scheduler.JobTypeDaily,
		RunFunc: func(ctx context.Context) error {
			equity := pf.MarkToMarket(nil)
			gate.ResetDay(equity)
			cb.Reset()
			logger.Info().Str("equity", equity.String()).Msg("daily risk anchor reset")
			return nil
		},
	})
}

// registerPeriodicJobs sets up the fixed-interval job that samples equity
// to the store and surfaces circuit-breaker trips as alerts.
func registerPeriodicJobs(sched *scheduler.Scheduler, store storage.Store, pf *portfolio.Portfolio, cb *risk.CircuitBreaker, alertMgr *alerts.Manager) {
	sched.RegisterJob(scheduler.Job{
		Name: "sample_equity",
		Type: scheduler.JobTypePeriodic,
		RunFunc: func(ctx context.Context) error {
			equity := pf.MarkToMarket(nil)
			if store != nil {
				if err := store.SaveEquitySample(ctx, storage.EquitySample{Timestamp: time.Now(), Equity: equity}); err != nil {
					return fmt.Errorf("save equity sample: %w", err)
				}
			}
			if cb.IsTripped() {
				alertMgr.Emit(alerts.Alert{
					Message:   fmt.Sprintf("circuit breaker tripped: %s", cb.TripReason()),
					Level:     alerts.LevelCritical,
					CreatedAt: time.Now(),
				})
			}
			return nil
		},
	})
}
