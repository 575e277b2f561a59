package repository

import (
	"context"
	"database/sql"
	"errors"

	"voltswap/internal/models"
)

// ErrUserNotFound indicates no user matched the lookup.
var ErrUserNotFound = errors.New("user not found")

// UserRepository handles persistence of users.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository returns repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, full_name, phone, email, role, status, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }, u *models.User) error {
	return row.Scan(
		&u.ID,
		&u.FullName,
		&u.Phone,
		&u.Email,
		&u.Role,
		&u.Status,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

// SearchByPhone returns users whose phone matches exactly, newest first.
func (r *UserRepository) SearchByPhone(ctx context.Context, phone string) ([]models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE phone = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// GetByEmail returns a single user by login email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	var u models.User
	if err := scanUser(r.db.QueryRowContext(ctx, query, email), &u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
