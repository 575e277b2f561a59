package models

import "time"

// Vehicle statuses.
const (
	VehicleActive   = "active"
	VehicleInactive = "inactive"
)

// Vehicle represents a registered electric vehicle. The battery type comes from
// the vehicle model and decides which station batteries fit.
type Vehicle struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	PlateNumber   string    `db:"plate_number" json:"plate_number"`
	ModelName     string    `db:"model_name" json:"model_name"`
	BatteryTypeID string    `db:"battery_type_id" json:"battery_type_id"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
