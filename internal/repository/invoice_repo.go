package repository

import (
	"context"
	"database/sql"
	"errors"

	"voltswap/internal/models"
)

// ErrInvoiceNotFound indicates no invoice matched the lookup.
var ErrInvoiceNotFound = errors.New("invoice not found")

// InvoiceRepository handles persistence of invoices.
type InvoiceRepository struct {
	db *sql.DB
}

// NewInvoiceRepository returns repository.
func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create stores a new invoice.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	const query = `
		INSERT INTO invoices (id, user_id, station_id, swap_id, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		invoice.ID,
		invoice.UserID,
		invoice.StationID,
		invoice.SwapID,
		invoice.TotalAmount,
		invoice.Status,
	).Scan(&invoice.CreatedAt, &invoice.UpdatedAt)
}

// MarkPaid finalizes an invoice once the payment layer derives a completed
// payment for it.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, id string) error {
	const query = `
		UPDATE invoices
		SET status = 'paid', updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}
