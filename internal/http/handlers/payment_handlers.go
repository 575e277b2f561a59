package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"voltswap/internal/payments"
	"voltswap/internal/repository"
)

// PaymentHandlers exposes the reconciler's derived views and actions.
type PaymentHandlers struct {
	reconciler *payments.Reconciler
	logger     *zap.Logger
}

// NewPaymentHandlers builds handlers.
func NewPaymentHandlers(reconciler *payments.Reconciler, logger *zap.Logger) *PaymentHandlers {
	return &PaymentHandlers{reconciler: reconciler, logger: logger}
}

// List handles GET /api/payments: the derived latest-per-invoice views.
func (h *PaymentHandlers) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payments": h.reconciler.Payments(),
	})
}

// GetInvoiceState handles GET /api/payments/{invoiceId}.
func (h *PaymentHandlers) GetInvoiceState(w http.ResponseWriter, r *http.Request) {
	state, ok := h.reconciler.Latest(mux.Vars(r)["invoiceId"])
	if !ok {
		writeError(w, http.StatusNotFound, "no payment activity for invoice")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ConfirmTransaction handles PATCH /api/transactions/{id}/confirm: the staff
// cash-received action. Local state only advances when the call succeeds.
func (h *PaymentHandlers) ConfirmTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := mux.Vars(r)["id"]
	state, err := h.reconciler.ConfirmCashPayment(r.Context(), transactionID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTransactionNotFound),
			errors.Is(err, payments.ErrUnknownTransaction):
			writeError(w, http.StatusNotFound, "transaction not found")
		case errors.Is(err, payments.ErrClosed):
			writeError(w, http.StatusConflict, "payment tracking is closed")
		default:
			h.logger.Error("confirm transaction failed", zap.String("transaction_id", transactionID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "confirmation failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// IngestEvent handles POST /internal/payments/events: the gateway's REST
// callback path. It feeds the same reducer as the pub/sub bus.
func (h *PaymentHandlers) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var ev payments.PaymentEvent
	if err := decodeBody(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}
	if ev.InvoiceID == "" {
		writeError(w, http.StatusBadRequest, "invoice_id is required")
		return
	}
	state, ok := h.reconciler.Apply(ev)
	if !ok {
		writeError(w, http.StatusConflict, "event not accepted")
		return
	}
	writeJSON(w, http.StatusAccepted, state)
}
