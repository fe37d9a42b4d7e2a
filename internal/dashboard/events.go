package dashboard

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// EventListener listens for PostgreSQL notifications on fill and equity
// events and forwards them to WebSocket clients via the broadcaster.
type EventListener struct {
	dbURL       string
	logger      zerolog.Logger
	broadcaster *Broadcaster
	shutdown    chan struct{}
}

// NewEventListener creates a new EventListener.
func NewEventListener(dbURL string, broadcaster *Broadcaster, logger zerolog.Logger) *EventListener {
	return &EventListener{
		dbURL:       dbURL,
		logger:      logger,
		broadcaster: broadcaster,
		shutdown:    make(chan struct{}),
	}
}

// Start begins listening for database notifications.
func (el *EventListener) Start(ctx context.Context) {
	go el.listenLoop(ctx)
}

func (el *EventListener) listenLoop(ctx context.Context) {
	defer el.logger.Info().Msg("event listener shutting down")

	minRetryDelay := 100 * time.Millisecond
	maxRetryDelay := 10 * time.Second
	retryDelay := minRetryDelay

	for {
		select {
		case <-ctx.Done():
			return
		case <-el.shutdown:
			return
		default:
		}

		listener := pq.NewListener(el.dbURL, minRetryDelay, maxRetryDelay, func(ev pq.ListenerEventType, err error) {
			if err != nil {
				el.logger.Error().Err(err).Msg("event listener connection event")
			}
		})

		if err := el.setupListeners(listener); err != nil {
			el.logger.Error().Err(err).Msg("event listener: failed to subscribe")
			listener.Close()
			retryDelay = maxRetryDelay
			time.Sleep(retryDelay)
			continue
		}

		retryDelay = minRetryDelay

		if err := el.handleNotifications(ctx, listener); err != nil {
			el.logger.Error().Err(err).Msg("event listener: notification loop failed")
		}

		listener.Close()

		select {
		case <-ctx.Done():
			return
		case <-el.shutdown:
			return
		default:
			time.Sleep(retryDelay)
		}
	}
}

func (el *EventListener) setupListeners(listener *pq.Listener) error {
	channels := []string{
		"fill_recorded",
		"equity_updated",
	}

	for _, channel := range channels {
		if err := listener.Listen(channel); err != nil {
			return err
		}
		el.logger.Debug().Str("channel", channel).Msg("event listener subscribed")
	}

	return nil
}

func (el *EventListener) handleNotifications(ctx context.Context, listener *pq.Listener) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-el.shutdown:
			return nil

		case notification := <-listener.Notify:
			if notification == nil {
				return nil
			}

			msg := WebSocketMessage{
				Type: notification.Channel,
				Data: map[string]interface{}{
					"event": notification.Extra,
				},
				Timestamp: time.Now().Format(time.RFC3339),
			}

			el.broadcaster.Broadcast(msg)
		}
	}
}

// Stop stops the event listener.
func (el *EventListener) Stop() {
	close(el.shutdown)
}
