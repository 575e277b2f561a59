package payments

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"voltswap/internal/models"
	"voltswap/internal/session"
)

// Reconciler errors.
var (
	ErrClosed             = errors.New("payments: reconciler closed")
	ErrUnknownTransaction = errors.New("payments: unknown transaction")
)

// SessionSink receives derived payment outcomes for watched sessions. The
// session store implements it so the accumulator's payment slot follows the
// reconciler's view.
type SessionSink interface {
	SetPaymentOutcome(sessionID, outcome string)
}

// TransactionConfirmer is the REST-side confirm action (staff received cash).
type TransactionConfirmer interface {
	Confirm(ctx context.Context, id string) (*models.Transaction, error)
}

// InvoiceMarker finalizes the persisted invoice when its payment completes.
type InvoiceMarker interface {
	MarkPaid(ctx context.Context, id string) error
}

// Listener observes applied events together with the resulting invoice state,
// e.g. for fan-out to websocket clients.
type Listener func(ev PaymentEvent, state InvoiceState)

// Reconciler folds asynchronous payment events into a single current-state
// view per invoice. Only arrival order matters: the log is append-only in the
// order events were applied, and conflicting updates resolve by
// last-arrived-wins through the reducer. One goroutine-safe instance serves
// the whole service.
type Reconciler struct {
	mu        sync.Mutex
	states    map[string]InvoiceState
	log       []PaymentEvent
	watches   map[string]string // invoice id -> session id
	listeners []Listener
	closed    bool

	sink      SessionSink
	confirmer TransactionConfirmer
	invoices  InvoiceMarker
	logger    *zap.Logger
	now       func() time.Time
}

// NewReconciler builds reconciler.
func NewReconciler(sink SessionSink, confirmer TransactionConfirmer, invoices InvoiceMarker, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		states:    make(map[string]InvoiceState),
		watches:   make(map[string]string),
		sink:      sink,
		confirmer: confirmer,
		invoices:  invoices,
		logger:    logger,
		now:       time.Now,
	}
}

// Watch binds an invoice to a session so derived outcomes flow into the
// session's payment slot. Called when the wizard enters the payment step.
func (r *Reconciler) Watch(invoiceID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.watches[invoiceID] = sessionID
}

// Unwatch detaches an invoice from its session. Events for the invoice are
// still folded (the log is service-wide) but no session mutation happens.
func (r *Reconciler) Unwatch(invoiceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.watches, invoiceID)
}

// UnwatchSession detaches every invoice bound to the given session. Used on
// wizard teardown so a queued event delivered afterwards cannot mutate it.
func (r *Reconciler) UnwatchSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for invoiceID, sid := range r.watches {
		if sid == sessionID {
			delete(r.watches, invoiceID)
		}
	}
}

// Subscribe registers a listener for applied events. Must be called during
// wiring, before events flow.
func (r *Reconciler) Subscribe(fn Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Apply folds one event into the invoice's state and returns the new view.
// Events without an invoice id and events arriving after Close are dropped.
func (r *Reconciler) Apply(ev PaymentEvent) (InvoiceState, bool) {
	r.mu.Lock()
	if r.closed || ev.InvoiceID == "" {
		r.mu.Unlock()
		return InvoiceState{}, false
	}

	prev := r.states[ev.InvoiceID]
	state := Reduce(prev, ev, r.now().UTC())
	r.states[ev.InvoiceID] = state
	r.log = append(r.log, ev)

	sessionID, watched := r.watches[ev.InvoiceID]
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	// Persist the terminal status exactly once, on the first transition.
	if state.Outcome == session.OutcomePaid && prev.Outcome != session.OutcomePaid {
		if err := r.invoices.MarkPaid(context.Background(), ev.InvoiceID); err != nil {
			r.logger.Warn("failed to persist paid invoice",
				zap.String("invoice_id", ev.InvoiceID),
				zap.Error(err))
		}
	}

	if watched && state.Outcome != "" {
		r.sink.SetPaymentOutcome(sessionID, state.Outcome)
	}
	for _, fn := range listeners {
		fn(ev, state)
	}
	return state, true
}

// ConfirmCashPayment runs the staff-side confirm action for a transaction.
// Only a transaction the derived state marks cash-confirmable can be
// confirmed; anything else, including mid-flight non-cash payments, is
// refused before the gateway is called. The REST response is authoritative:
// on success the derived state resolves to paid immediately, without waiting
// for the gateway's own status push. On failure nothing is advanced.
func (r *Reconciler) ConfirmCashPayment(ctx context.Context, transactionID string) (InvoiceState, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return InvoiceState{}, ErrClosed
	}
	confirmable := false
	for _, state := range r.states {
		if state.CashConfirmable && state.Transaction != nil && state.Transaction.ID == transactionID {
			confirmable = true
			break
		}
	}
	r.mu.Unlock()
	if !confirmable {
		return InvoiceState{}, ErrUnknownTransaction
	}

	tx, err := r.confirmer.Confirm(ctx, transactionID)
	if err != nil {
		return InvoiceState{}, err
	}
	if tx.Status != models.TransactionCompleted {
		r.logger.Warn("confirm action did not complete transaction",
			zap.String("transaction_id", transactionID),
			zap.String("status", tx.Status))
		return InvoiceState{}, ErrUnknownTransaction
	}

	state, ok := r.Apply(PaymentEvent{
		Type:      EventPaymentStatus,
		InvoiceID: tx.InvoiceID,
		Transaction: &TransactionView{
			ID:            tx.ID,
			Status:        tx.Status,
			TotalAmount:   tx.TotalAmount,
			PaymentMethod: tx.PaymentMethod,
		},
		Timestamp: r.now().UTC(),
	})
	if !ok {
		return InvoiceState{}, ErrClosed
	}
	return state, nil
}

// Latest returns the current derived view for an invoice.
func (r *Reconciler) Latest(invoiceID string) (InvoiceState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[invoiceID]
	return state, ok
}

// Payments returns the derived views for all invoices seen so far, most
// recently updated first.
func (r *Reconciler) Payments() []InvoiceState {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]InvoiceState, 0, len(r.states))
	for _, state := range r.states {
		result = append(result, state)
	}
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].LastArrivedAt.After(result[i].LastArrivedAt) {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result
}

// Log returns a copy of the arrival-ordered event log.
func (r *Reconciler) Log() []PaymentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PaymentEvent, len(r.log))
	copy(out, r.log)
	return out
}

// Close detaches the reconciler. Subsequent Apply calls are no-ops, so a
// delayed event delivered after teardown cannot mutate anything.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.watches = make(map[string]string)
	r.listeners = nil
}
