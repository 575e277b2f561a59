package payments

import "time"

// Event types pushed by the payment gateway and fanned out to clients.
const (
	EventPaymentPending = "payment:pending"
	EventPaymentConfirm = "payment:confirm"
	EventPaymentStatus  = "payment:status"
	EventNotification   = "notification"
)

// TransactionView is the nested transaction record carried by payment events.
type TransactionView struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	TotalAmount   float64 `json:"total_amount"`
	PaymentMethod string  `json:"payment_method"`
}

// PaymentEvent is one pushed message. Timestamp is a server-assigned hint and
// may be absent or out of order; it is never used to sort events.
type PaymentEvent struct {
	Type        string           `json:"type"`
	InvoiceID   string           `json:"invoice_id"`
	UserID      string           `json:"user_id,omitempty"`
	StationID   string           `json:"station_id,omitempty"`
	Transaction *TransactionView `json:"transaction,omitempty"`
	Message     string           `json:"message,omitempty"`
	Timestamp   time.Time        `json:"timestamp,omitempty"`
}
