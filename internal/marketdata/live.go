package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StreamType selects the Binance-style ticker payload shape.
type StreamType string

const (
	StreamMiniTicker StreamType = "mini_ticker"
	StreamTicker     StreamType = "ticker"
)

// LiveConfig configures the live exchange websocket source.
type LiveConfig struct {
	// BaseWSURL is the multiplexed-stream base, e.g.
	// "wss://stream.binance.com:9443" or the testnet equivalent.
	BaseWSURL string

	StreamType StreamType

	// DialTimeout bounds the initial handshake.
	DialTimeout time.Duration

	// ReconnectDelay is the backoff applied between dropped-connection
	// retries. A fully broken source (dial never succeeds) terminates
	// the sequence only when MaxReconnectAttempts is positive; with the
	// zero value Start keeps redialling until ctx is cancelled or Stop
	// is called.
	ReconnectDelay time.Duration

	// MaxReconnectAttempts caps the retry loop; 0 means retry forever.
	MaxReconnectAttempts int
}

func (c LiveConfig) streamName(symbol string) (string, error) {
	var suffix string
	switch c.StreamType {
	case StreamMiniTicker, "":
		suffix = "miniTicker"
	case StreamTicker:
		suffix = "ticker"
	default:
		return "", fmt.Errorf("marketdata: unsupported stream type %q", c.StreamType)
	}
	return fmt.Sprintf("%s@%s", strings.ToLower(symbol), suffix), nil
}

// tickerMessage mirrors the Binance multiplexed miniTicker/ticker payload:
// {s: symbol, c: close-price, E: event-time-ms, v: volume}.
type tickerMessage struct {
	Symbol    string `json:"s"`
	ClosePx   string `json:"c"`
	EventTime int64  `json:"E"`
	Volume    string `json:"v"`
}

type multiplexEnvelope struct {
	Stream string          `json:"stream"`
	Data   tickerMessage   `json:"data"`
	Raw    json.RawMessage `json:"-"`
}

// Live is a Source backed by a real exchange's multiplexed ticker stream.
type Live struct {
	cfg    LiveConfig
	logger zerolog.Logger

	mu       sync.Mutex
	handlers map[string][]Handler
	conn     *websocket.Conn
	stopCh   chan struct{}
	stopped  bool
}

// NewLive constructs a live websocket source. Dialing is deferred to Start.
func NewLive(cfg LiveConfig, logger zerolog.Logger) *Live {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = time.Second
	}
	return &Live{
		cfg:      cfg,
		logger:   logger,
		handlers: make(map[string][]Handler),
		stopCh:   make(chan struct{}),
	}
}

func (l *Live) Subscribe(symbol string, handler Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[symbol] = append(l.handlers[symbol], handler)
}

// Start dials the multiplexed stream for every subscribed symbol and blocks,
// dispatching ticks until the context is cancelled, Stop is called, or the
// connection cannot be (re)established within MaxReconnectAttempts.
func (l *Live) Start(ctx context.Context) error {
	l.mu.Lock()
	symbols := make([]string, 0, len(l.handlers))
	for symbol := range l.handlers {
		symbols = append(symbols, symbol)
	}
	l.mu.Unlock()

	if len(symbols) == 0 {
		return fmt.Errorf("marketdata: live source started with no subscribed symbols")
	}

	streamNames := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		name, err := l.cfg.streamName(symbol)
		if err != nil {
			return err
		}
		streamNames = append(streamNames, name)
	}

	url := fmt.Sprintf("%s/stream?streams=%s", l.cfg.BaseWSURL, strings.Join(streamNames, "/"))

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopCh:
			return nil
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			attempt++
			l.logger.Warn().Err(err).Int("attempt", attempt).Msg("marketdata: live dial failed")
			if l.cfg.MaxReconnectAttempts > 0 && attempt >= l.cfg.MaxReconnectAttempts {
				return fmt.Errorf("marketdata: live source exhausted reconnect attempts: %w", err)
			}
			select {
			case <-time.After(l.cfg.ReconnectDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			case <-l.stopCh:
				return nil
			}
		}
		attempt = 0

		l.mu.Lock()
		l.conn = conn
		l.mu.Unlock()

		err = l.readLoop(ctx, conn)
		conn.Close()
		if err == errStopped {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Transient disconnect: log and reconnect, per §7 kind 1.
		l.logger.Warn().Err(err).Msg("marketdata: live stream disconnected, reconnecting")
		select {
		case <-time.After(l.cfg.ReconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopCh:
			return nil
		}
	}
}

var errStopped = fmt.Errorf("marketdata: stopped")

func (l *Live) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopCh:
			return errStopped
		default:
		}

		var envelope multiplexEnvelope
		if err := conn.ReadJSON(&envelope); err != nil {
			return err
		}
		tick, err := l.toTick(envelope.Data)
		if err != nil {
			// Malformed message: log and continue per §7 kind 1.
			l.logger.Warn().Err(err).Msg("marketdata: malformed tick message")
			continue
		}

		l.mu.Lock()
		handlers := append([]Handler(nil), l.handlers[tick.Symbol]...)
		l.mu.Unlock()
		for _, h := range handlers {
			h(ctx, tick)
		}
	}
}

func (l *Live) toTick(msg tickerMessage) (Tick, error) {
	price, err := decimal.NewFromString(msg.ClosePx)
	if err != nil {
		return Tick{}, fmt.Errorf("marketdata: parse price: %w", err)
	}
	volume, _ := decimal.NewFromString(msg.Volume)
	return Tick{
		Symbol:    msg.Symbol,
		Price:     price,
		Timestamp: time.UnixMilli(msg.EventTime),
		Volume:    volume,
	}, nil
}

// Stop disconnects the underlying stream and causes Start to return.
func (l *Live) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	conn := l.conn
	l.mu.Unlock()

	close(l.stopCh)
	if conn != nil {
		conn.Close()
	}
}
