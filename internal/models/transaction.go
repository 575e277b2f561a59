package models

import "time"

// Transaction statuses.
const (
	TransactionProcessing = "processing"
	TransactionCompleted  = "completed"
	TransactionFailed     = "failed"
)

// Payment method names.
const (
	MethodCash   = "cash"
	MethodQR     = "qr"
	MethodWallet = "wallet"
)

// Transaction represents a payment attempt against an invoice.
type Transaction struct {
	ID            string    `db:"id" json:"id"`
	InvoiceID     string    `db:"invoice_id" json:"invoice_id"`
	Status        string    `db:"status" json:"status"`
	TotalAmount   float64   `db:"total_amount" json:"total_amount"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
