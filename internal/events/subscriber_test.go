package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"voltswap/internal/payments"
)

type recordingApplier struct {
	applied []payments.PaymentEvent
}

func (r *recordingApplier) Apply(ev payments.PaymentEvent) (payments.InvoiceState, bool) {
	r.applied = append(r.applied, ev)
	return payments.InvoiceState{InvoiceID: ev.InvoiceID}, ev.InvoiceID != ""
}

type recordingNotifier struct {
	notified []payments.PaymentEvent
}

func (r *recordingNotifier) Notify(ev payments.PaymentEvent) {
	r.notified = append(r.notified, ev)
}

func newTestSubscriber(applier Applier, notifier Notifier) *Subscriber {
	return NewSubscriber(nil, "", applier, notifier, 3, time.Millisecond, zap.NewNop())
}

func TestDispatchRoutesPaymentEventToApplier(t *testing.T) {
	applier := &recordingApplier{}
	notifier := &recordingNotifier{}
	sub := newTestSubscriber(applier, notifier)

	payload, _ := json.Marshal(payments.PaymentEvent{Type: payments.EventPaymentPending, InvoiceID: "I1"})
	sub.dispatch(string(payload))

	if len(applier.applied) != 1 || applier.applied[0].InvoiceID != "I1" {
		t.Fatalf("expected one applied event, got %+v", applier.applied)
	}
	if len(notifier.notified) != 0 {
		t.Fatalf("payment events must not hit the notifier, got %+v", notifier.notified)
	}
}

func TestDispatchRoutesNotificationToNotifier(t *testing.T) {
	applier := &recordingApplier{}
	notifier := &recordingNotifier{}
	sub := newTestSubscriber(applier, notifier)

	payload, _ := json.Marshal(payments.PaymentEvent{Type: payments.EventNotification, UserID: "U1", Message: "swap complete"})
	sub.dispatch(string(payload))

	if len(notifier.notified) != 1 || notifier.notified[0].Message != "swap complete" {
		t.Fatalf("expected one notification, got %+v", notifier.notified)
	}
	if len(applier.applied) != 0 {
		t.Fatalf("notifications must skip the reconciler, got %+v", applier.applied)
	}
}

func TestDispatchDropsMalformedPayload(t *testing.T) {
	applier := &recordingApplier{}
	sub := newTestSubscriber(applier, &recordingNotifier{})

	sub.dispatch("{not json")

	if len(applier.applied) != 0 {
		t.Fatalf("malformed payload must be dropped, got %+v", applier.applied)
	}
}

func TestRunGivesUpAfterConsecutiveFailures(t *testing.T) {
	sub := NewSubscriber(nil, "", &recordingApplier{}, &recordingNotifier{}, 3, time.Millisecond, zap.NewNop())

	calls := 0
	sub.consume = func(ctx context.Context) (bool, error) {
		calls++
		return false, errors.New("connection refused")
	}

	sub.Run(context.Background())
	if calls != 3 {
		t.Fatalf("expected 3 attempts before giving up, got %d", calls)
	}
}

func TestRunResetsFailureBudgetAfterResubscription(t *testing.T) {
	sub := NewSubscriber(nil, "", &recordingApplier{}, &recordingNotifier{}, 2, time.Millisecond, zap.NewNop())

	// Fail, then hold a healthy subscription that drops, then fail twice.
	// The healthy stretch must reset the budget, so two more attempts run
	// before the subscriber gives up.
	script := []struct {
		subscribed bool
		err        error
	}{
		{false, errors.New("connection refused")},
		{true, errors.New("connection reset")},
		{false, errors.New("connection refused")},
		{false, errors.New("connection refused")},
	}
	calls := 0
	sub.consume = func(ctx context.Context) (bool, error) {
		step := script[calls]
		calls++
		return step.subscribed, step.err
	}

	sub.Run(context.Background())
	if calls != 3 {
		t.Fatalf("expected the healthy stretch to reset the budget (3 calls), got %d", calls)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	sub := NewSubscriber(nil, "", &recordingApplier{}, &recordingNotifier{}, 5, time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	sub.consume = func(ctx context.Context) (bool, error) {
		calls++
		cancel()
		return true, errors.New("connection reset")
	}

	sub.Run(ctx)
	if calls != 1 {
		t.Fatalf("expected a single attempt before cancellation, got %d", calls)
	}
}

func TestNewSubscriberDefaults(t *testing.T) {
	sub := NewSubscriber(nil, "", nil, nil, 0, 0, zap.NewNop())
	if sub.channel != DefaultChannel {
		t.Fatalf("expected default channel, got %s", sub.channel)
	}
	if sub.maxAttempts <= 0 || sub.backoff <= 0 {
		t.Fatalf("defaults not applied: attempts=%d backoff=%s", sub.maxAttempts, sub.backoff)
	}
}
