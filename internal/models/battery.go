package models

import "time"

// Battery statuses.
const (
	BatteryAvailable   = "available"
	BatteryInUse       = "in_use"
	BatteryCharging    = "charging"
	BatteryMaintenance = "maintenance"
)

// Battery represents a physical battery held at a station.
type Battery struct {
	ID            string    `db:"id" json:"id"`
	StationID     string    `db:"station_id" json:"station_id"`
	BatteryTypeID string    `db:"battery_type_id" json:"battery_type_id"`
	Status        string    `db:"status" json:"status"`
	ChargeLevel   int       `db:"charge_level" json:"charge_level"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
