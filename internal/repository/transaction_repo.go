package repository

import (
	"context"
	"database/sql"
	"errors"

	"voltswap/internal/models"
)

// ErrTransactionNotFound indicates no transaction matched the lookup.
var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionRepository handles persistence of payment transactions.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository returns repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, invoice_id, status, total_amount, payment_method, created_at, updated_at`

// Confirm marks a processing transaction as completed and returns the updated row.
// Confirming an already completed transaction is a no-op that returns the row as-is.
func (r *TransactionRepository) Confirm(ctx context.Context, id string) (*models.Transaction, error) {
	const query = `
		UPDATE transactions
		SET status = CASE WHEN status = 'processing' THEN 'completed' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + transactionColumns + `
	`
	var tx models.Transaction
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tx.ID,
		&tx.InvoiceID,
		&tx.Status,
		&tx.TotalAmount,
		&tx.PaymentMethod,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}
