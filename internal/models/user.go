package models

import "time"

// User roles.
const (
	RoleDriver = "driver"
	RoleStaff  = "staff"
	RoleAdmin  = "admin"
)

// User represents a registered driver or staff member.
type User struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Phone        string    `db:"phone" json:"phone"`
	Email        string    `db:"email" json:"email"`
	Role         string    `db:"role" json:"role"`
	Status       string    `db:"status" json:"status"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
