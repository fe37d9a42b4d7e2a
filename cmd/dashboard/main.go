// Command dashboard serves a read-only HTTP and WebSocket API over the
// engine's persisted state: fills, the equity curve and derived
// performance metrics. It never touches the router or portfolio directly
// — everything it reports comes from storage.Store and, in live mode,
// Postgres LISTEN/NOTIFY events relayed by the broadcaster.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nitinkhare/cryptoTradingEngine/internal/analytics"
	"github.com/nitinkhare/cryptoTradingEngine/internal/config"
	"github.com/nitinkhare/cryptoTradingEngine/internal/dashboard"
	"github.com/nitinkhare/cryptoTradingEngine/internal/marketdata"
	"github.com/nitinkhare/cryptoTradingEngine/internal/storage"
)

// Server holds the dashboard's dependencies.
type Server struct {
	store       storage.Store
	cfg         *config.Config
	logger      zerolog.Logger
	broadcaster *dashboard.Broadcaster
	listener    *dashboard.EventListener
}

func main() {
	configPath := flag.String("config", "config/config.json", "path to config file")
	port := flag.String("port", "8081", "dashboard server port")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	broadcaster := dashboard.NewBroadcaster(logger)

	var eventListener *dashboard.EventListener
	if cfg.DatabaseURL != "" {
		eventListener = dashboard.NewEventListener(cfg.DatabaseURL, broadcaster, logger)
	}

	runCtx, runCancel := context.WithCancel(context.Background())

	server := &Server{
		store:       store,
		cfg:         cfg,
		logger:      logger,
		broadcaster: broadcaster,
		listener:    eventListener,
	}

	go broadcaster.Run()
	logger.Info().Msg("broadcaster started")

	if eventListener != nil {
		eventListener.Start(runCtx)
		logger.Info().Msg("event listener started")
	}

	go server.startPeriodicBroadcast(runCtx)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/metrics", server.handleMetrics)
	mux.HandleFunc("/api/fills", server.handleFills)
	mux.HandleFunc("/api/equity", server.handleEquityCurve)
	mux.HandleFunc("/api/candles", server.handleCandles)
	mux.HandleFunc("/api/status", server.handleStatus)
	mux.HandleFunc("/health", server.handleHealth)
	mux.HandleFunc("/ws", server.handleWebSocket)

	httpServer := &http.Server{
		Addr:         ":" + *port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", *port).Msg("dashboard API starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	logger.Info().Msg("shutting down dashboard server")
	runCancel()
	if eventListener != nil {
		eventListener.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}

	broadcaster.Shutdown()
	logger.Info().Msg("dashboard server stopped")
}

// handleMetrics derives Sharpe ratio, max drawdown and total return from
// the persisted equity curve.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()
	samples, err := s.store.GetEquityCurve(ctx, time.Time{}, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch equity curve")
		s.respondError(w, http.StatusInternalServerError, "failed to fetch equity curve")
		return
	}

	curve := toDecimals(samples)
	metrics := analytics.NewMetrics(curve)
	resp := MetricsResponse{
		SharpeRatio:        metrics.SharpeRatio(s.cfg.RiskFreeRate),
		MaxDrawdownPercent: analytics.MaxDrawdown(curve) * 100,
		SampleCount:        len(samples),
		Timestamp:          time.Now(),
	}
	totalReturn, _ := analytics.TotalReturn(curve).Float64()
	resp.TotalReturnPercent = totalReturn * 100

	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFills(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		s.respondError(w, http.StatusBadRequest, "symbol query parameter required")
		return
	}

	fills, err := s.store.ListFills(r.Context(), symbol, 100)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch fills")
		s.respondError(w, http.StatusInternalServerError, "failed to fetch fills")
		return
	}

	out := make([]FillResponse, len(fills))
	for i, f := range fills {
		out[i] = FillResponse{
			ID:         f.ID,
			StrategyID: f.StrategyID,
			Symbol:     f.Symbol,
			Side:       f.Side,
			Quantity:   f.Quantity.String(),
			Price:      f.Price.String(),
			Timestamp:  f.Timestamp,
		}
	}

	s.respondJSON(w, http.StatusOK, FillsResponse{Symbol: symbol, Fills: out, Timestamp: time.Now()})
}

func (s *Server) handleEquityCurve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	samples, err := s.store.GetEquityCurve(r.Context(), time.Time{}, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch equity curve")
		s.respondError(w, http.StatusInternalServerError, "failed to fetch equity curve")
		return
	}

	points := make([]EquityCurvePoint, len(samples))
	for i, sample := range samples {
		points[i] = EquityCurvePoint{Timestamp: sample.Timestamp, Equity: sample.Equity.String()}
	}

	s.respondJSON(w, http.StatusOK, EquityCurveResponse{Points: points, Timestamp: time.Now()})
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		s.respondError(w, http.StatusBadRequest, "symbol query parameter required")
		return
	}

	candles, err := s.store.GetCandles(r.Context(), symbol, marketdata.Interval1m, 500)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch candles")
		s.respondError(w, http.StatusInternalServerError, "failed to fetch candles")
		return
	}

	out := make([]CandleResponse, len(candles))
	for i, c := range candles {
		out[i] = CandleResponse{
			Timestamp: c.OpenTime,
			Open:      c.Open.String(),
			High:      c.High.String(),
			Low:       c.Low.String(),
			Close:     c.Close.String(),
			Volume:    c.Volume.String(),
		}
	}

	s.respondJSON(w, http.StatusOK, CandlesResponse{Symbol: symbol, Interval: string(marketdata.Interval1m), Candles: out, Timestamp: time.Now()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	connected := s.store.Ping(r.Context()) == nil
	resp := StatusResponse{
		StorageConnected: connected,
		Symbols:          s.cfg.Symbols,
		RouterBackend:    routerBackendName(s.cfg),
		Timestamp:        time.Now(),
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func toDecimals(samples []storage.EquitySample) []decimal.Decimal {
	out := make([]decimal.Decimal, len(samples))
	for i, s := range samples {
		out[i] = s.Equity
	}
	return out
}

func routerBackendName(cfg *config.Config) string {
	if cfg.Router.CredentialsPresent() {
		return "live"
	}
	return "simulated"
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      status,
		Timestamp: time.Now(),
	})
}

// startPeriodicBroadcast pushes a metrics snapshot to connected WebSocket
// clients on a fixed interval.
func (s *Server) startPeriodicBroadcast(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.broadcastMetrics(ctx); err != nil {
				s.logger.Error().Err(err).Msg("failed to broadcast metrics")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) broadcastMetrics(ctx context.Context) error {
	samples, err := s.store.GetEquityCurve(ctx, time.Time{}, time.Now())
	if err != nil {
		return fmt.Errorf("fetch equity curve: %w", err)
	}

	curve := toDecimals(samples)
	metrics := analytics.NewMetrics(curve)
	totalReturn, _ := analytics.TotalReturn(curve).Float64()

	msg := dashboard.WebSocketMessage{
		Type: "metrics",
		Data: MetricsResponse{
			SharpeRatio:        metrics.SharpeRatio(s.cfg.RiskFreeRate),
			MaxDrawdownPercent: analytics.MaxDrawdown(curve) * 100,
			TotalReturnPercent: totalReturn * 100,
			SampleCount:        len(samples),
			Timestamp:          time.Now(),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	s.broadcaster.Broadcast(msg)
	return nil
}
