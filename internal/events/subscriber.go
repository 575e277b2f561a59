package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"voltswap/internal/payments"
)

// DefaultChannel is the redis pub/sub channel the payment gateway publishes to.
const DefaultChannel = "payments:events"

// Applier folds a pushed event into local state.
type Applier interface {
	Apply(ev payments.PaymentEvent) (payments.InvoiceState, bool)
}

// Notifier fans plain notifications out to connected clients.
type Notifier interface {
	Notify(ev payments.PaymentEvent)
}

// Subscriber consumes payment events from redis pub/sub and feeds the
// reconciler. Reconnection is bounded: after maxAttempts consecutive failures
// with a fixed backoff between tries, the subscriber gives up and the service
// keeps running without live payment updates. A successful resubscription
// resets the failure budget.
type Subscriber struct {
	client      *redis.Client
	channel     string
	applier     Applier
	notifier    Notifier
	logger      *zap.Logger
	maxAttempts int
	backoff     time.Duration

	// consume reports whether the subscription was established before the
	// returned error. Swappable for tests.
	consume func(ctx context.Context) (bool, error)
}

// NewSubscriber builds subscriber.
func NewSubscriber(client *redis.Client, channel string, applier Applier, notifier Notifier, maxAttempts int, backoff time.Duration, logger *zap.Logger) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	s := &Subscriber{
		client:      client,
		channel:     channel,
		applier:     applier,
		notifier:    notifier,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
	s.consume = s.consumePubSub
	return s
}

// Run blocks consuming events until ctx is cancelled or reconnection attempts
// are exhausted.
func (s *Subscriber) Run(ctx context.Context) {
	attempts := 0
	for {
		if ctx.Err() != nil {
			return
		}

		subscribed, err := s.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		if subscribed {
			// A disconnect after a healthy stretch starts a fresh budget;
			// only back-to-back failed attempts exhaust it.
			attempts = 0
		}

		attempts++
		if attempts >= s.maxAttempts {
			s.logger.Error("payment event subscription abandoned",
				zap.Int("attempts", attempts),
				zap.Error(err))
			return
		}

		s.logger.Warn("payment event subscription lost, retrying",
			zap.Int("attempt", attempts),
			zap.Duration("backoff", s.backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.backoff):
		}
	}
}

func (s *Subscriber) consumePubSub(ctx context.Context) (bool, error) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	// Fail fast if the subscription itself did not stick.
	if _, err := pubsub.Receive(ctx); err != nil {
		return false, err
	}

	s.logger.Info("subscribed to payment events", zap.String("channel", s.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return true, redis.ErrClosed
			}
			s.dispatch(msg.Payload)
		}
	}
}

func (s *Subscriber) dispatch(payload string) {
	var ev payments.PaymentEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		s.logger.Warn("dropping malformed payment event", zap.Error(err))
		return
	}
	if ev.Type == payments.EventNotification {
		// Notifications carry no invoice state and skip the reconciler.
		if s.notifier != nil {
			s.notifier.Notify(ev)
		}
		return
	}
	if _, ok := s.applier.Apply(ev); !ok {
		s.logger.Debug("payment event not applied", zap.String("invoice_id", ev.InvoiceID))
	}
}
