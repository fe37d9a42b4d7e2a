// Package metrics exposes Prometheus instrumentation for the trading loop:
// tick throughput, signal and order outcomes, strategy errors, and the
// latest mark-to-market equity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Metrics holds the collectors registered for one engine instance.
type Metrics struct {
	ticksTotal          *prometheus.CounterVec
	signalsTotal        *prometheus.CounterVec
	ordersTotal         *prometheus.CounterVec
	strategyErrorsTotal *prometheus.CounterVec
	equity              prometheus.Gauge
}

// New registers the trading-loop collectors against reg and returns the
// handle used to record observations.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trading_ticks_total",
			Help: "Ticks observed, by symbol.",
		}, []string{"symbol"}),
		signalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trading_signals_total",
			Help: "Strategy signals, by strategy and risk-gate outcome.",
		}, []string{"strategy_id", "approved"}),
		ordersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trading_orders_total",
			Help: "Orders submitted to the router, by strategy and status.",
		}, []string{"strategy_id", "status"}),
		strategyErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trading_strategy_errors_total",
			Help: "Errors raised by a strategy's OnData, by strategy.",
		}, []string{"strategy_id"}),
		equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trading_equity",
			Help: "Latest mark-to-market portfolio equity.",
		}),
	}

	reg.MustRegister(m.ticksTotal, m.signalsTotal, m.ordersTotal, m.strategyErrorsTotal, m.equity)
	return m
}

// ObserveTick records one tick for symbol.
func (m *Metrics) ObserveTick(symbol string) {
	m.ticksTotal.WithLabelValues(symbol).Inc()
}

// ObserveSignal records a signal's risk-gate outcome for strategyID.
func (m *Metrics) ObserveSignal(strategyID string, approved bool) {
	m.signalsTotal.WithLabelValues(strategyID, approvedLabel(approved)).Inc()
}

// ObserveOrder records a router outcome for strategyID.
func (m *Metrics) ObserveOrder(strategyID, status string) {
	m.ordersTotal.WithLabelValues(strategyID, status).Inc()
}

// ObserveStrategyError records an OnData failure for strategyID.
func (m *Metrics) ObserveStrategyError(strategyID string) {
	m.strategyErrorsTotal.WithLabelValues(strategyID).Inc()
}

// SetEquity sets the latest equity gauge.
func (m *Metrics) SetEquity(equity decimal.Decimal) {
	f, _ := equity.Float64()
	m.equity.Set(f)
}

func approvedLabel(approved bool) string {
	if approved {
		return "true"
	}
	return "false"
}
