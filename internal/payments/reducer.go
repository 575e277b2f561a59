package payments

import (
	"time"

	"voltswap/internal/models"
	"voltswap/internal/session"
)

// InvoiceState is the derived current view of a single invoice's payment.
type InvoiceState struct {
	InvoiceID       string           `json:"invoice_id"`
	Outcome         string           `json:"outcome"`
	Transaction     *TransactionView `json:"transaction,omitempty"`
	CashConfirmable bool             `json:"cash_confirmable"`
	LastArrivedAt   time.Time        `json:"last_arrived_at"`
}

// outcomeRank orders outcomes so the derived state never regresses. Events
// arriving late (or duplicated) can refresh the transaction view but cannot
// move the outcome backwards; paid is absorbing.
func outcomeRank(outcome string) int {
	switch outcome {
	case session.OutcomeAwaitingMethod:
		return 1
	case session.OutcomePendingConfirmation:
		return 2
	case session.OutcomePaid:
		return 3
	default:
		return 0
	}
}

// Reduce folds one incoming event into the current invoice state. Pure
// function: events from the socket bus and events synthesized from REST
// responses go through the same path, so applying the same completed event
// twice yields the same terminal state.
func Reduce(current InvoiceState, ev PaymentEvent, arrivedAt time.Time) InvoiceState {
	next := current
	next.InvoiceID = ev.InvoiceID
	next.LastArrivedAt = arrivedAt

	if current.Outcome == session.OutcomePaid {
		return next
	}

	switch ev.Type {
	case EventPaymentPending:
		if outcomeRank(session.OutcomeAwaitingMethod) > outcomeRank(current.Outcome) {
			next.Outcome = session.OutcomeAwaitingMethod
		}
	case EventPaymentConfirm:
		if outcomeRank(session.OutcomePendingConfirmation) > outcomeRank(current.Outcome) {
			next.Outcome = session.OutcomePendingConfirmation
		}
		if ev.Transaction != nil {
			tx := *ev.Transaction
			next.Transaction = &tx
		}
	case EventPaymentStatus:
		if ev.Transaction != nil && ev.Transaction.Status == models.TransactionCompleted {
			next.Outcome = session.OutcomePaid
			next.Transaction = nil
		} else if ev.Transaction != nil {
			// Non-terminal status update refreshes the transaction view only.
			tx := *ev.Transaction
			next.Transaction = &tx
		}
	}

	next.CashConfirmable = next.Outcome == session.OutcomePendingConfirmation &&
		next.Transaction != nil &&
		next.Transaction.PaymentMethod == models.MethodCash
	return next
}
