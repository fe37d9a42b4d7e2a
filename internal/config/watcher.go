// Package config - watcher.go provides config file hot-reload support.
//
// The watcher polls the config file for changes (stat-based, every 5 seconds)
// and notifies registered callbacks when risk parameters change.
//
// Only risk configuration is reloadable. Router credentials, database URL,
// symbols and strategy definitions require an engine restart.
package config

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Watcher monitors the config file for changes and invokes callbacks when
// risk-related fields change. It uses stat-based polling (no external
// dependencies like fsnotify required).
type Watcher struct {
	path     string
	logger   zerolog.Logger
	mu       sync.RWMutex
	current  *Config
	lastMod  time.Time
	onChange []func(old, new *Config)
	done     chan struct{}
	stopped  bool
}

// NewWatcher creates a watcher for the given config file path. initial is
// the currently loaded config. The watcher does not start until Start() is
// called.
func NewWatcher(path string, initial *Config, logger zerolog.Logger) *Watcher {
	return &Watcher{
		path:    path,
		logger:  logger,
		current: initial,
		done:    make(chan struct{}),
	}
}

// OnChange registers a callback invoked when the config file changes and
// the new config passes validation. Only risk config changes trigger
// callbacks.
func (w *Watcher) OnChange(fn func(old, new *Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Start begins polling the config file for changes. It returns immediately;
// the watcher runs in a background goroutine.
func (w *Watcher) Start() error {
	info, err := os.Stat(w.path)
	if err != nil {
		return err
	}
	w.lastMod = info.ModTime()
	w.logger.Info().Str("path", w.path).Dur("interval", 5*time.Second).Msg("config watcher started")

	go w.pollLoop()
	return nil
}

// Stop stops the config watcher. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped {
		w.stopped = true
		close(w.done)
		w.logger.Info().Msg("config watcher stopped")
	}
}

// Current returns the most recently accepted config: the initial one, or
// the last reloaded valid config whose risk settings differed. A reload
// that changes only non-risk fields does not replace it.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) pollLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.checkForChanges()
		}
	}
}

func (w *Watcher) checkForChanges() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Error().Err(err).Msg("config watcher stat failed")
		return
	}
	if !info.ModTime().After(w.lastMod) {
		return
	}
	w.lastMod = info.ModTime()

	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Error().Err(err).Msg("config watcher read failed")
		return
	}

	newCfg := Config{UseTestnet: true}
	if err := json.Unmarshal(data, &newCfg); err != nil {
		w.logger.Error().Err(err).Msg("config watcher parse failed, keeping old config")
		return
	}
	if err := newCfg.Validate(); err != nil {
		w.logger.Error().Err(err).Msg("config watcher validation failed, keeping old config")
		return
	}

	w.mu.RLock()
	oldCfg := w.current
	w.mu.RUnlock()

	if !riskConfigChanged(oldCfg.Risk, newCfg.Risk) {
		return
	}
	w.logRiskChanges(oldCfg.Risk, newCfg.Risk)

	w.mu.Lock()
	w.current = &newCfg
	callbacks := make([]func(old, new *Config), len(w.onChange))
	copy(callbacks, w.onChange)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(oldCfg, &newCfg)
	}
}

func riskConfigChanged(old, new RiskConfig) bool {
	return old.MaxPositionPct != new.MaxPositionPct ||
		old.MaxDailyLossPct != new.MaxDailyLossPct ||
		old.MaxPositions != new.MaxPositions ||
		old.CircuitBreaker != new.CircuitBreaker
}

func (w *Watcher) logRiskChanges(old, new RiskConfig) {
	if old.MaxPositionPct != new.MaxPositionPct {
		w.logger.Info().Float64("old", old.MaxPositionPct).Float64("new", new.MaxPositionPct).Msg("max_position_pct changed")
	}
	if old.MaxDailyLossPct != new.MaxDailyLossPct {
		w.logger.Info().Float64("old", old.MaxDailyLossPct).Float64("new", new.MaxDailyLossPct).Msg("max_daily_loss_pct changed")
	}
	if old.MaxPositions != new.MaxPositions {
		w.logger.Info().Int("old", old.MaxPositions).Int("new", new.MaxPositions).Msg("max_positions changed")
	}
	if old.CircuitBreaker != new.CircuitBreaker {
		w.logger.Info().
			Int("max_consecutive", new.CircuitBreaker.MaxConsecutiveFailures).
			Int("max_hourly", new.CircuitBreaker.MaxFailuresPerHour).
			Msg("circuit_breaker config changed")
	}
}
