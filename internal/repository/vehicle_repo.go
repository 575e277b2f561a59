package repository

import (
	"context"
	"database/sql"

	"voltswap/internal/models"
)

// VehicleRepository handles persistence of vehicles.
type VehicleRepository struct {
	db *sql.DB
}

// NewVehicleRepository returns repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

const vehicleColumns = `id, user_id, plate_number, model_name, battery_type_id, status, created_at, updated_at`

// ListActiveByUser returns the user's active vehicles, newest first.
func (r *VehicleRepository) ListActiveByUser(ctx context.Context, userID string) ([]models.Vehicle, error) {
	const query = `
		SELECT ` + vehicleColumns + `
		FROM vehicles
		WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(
			&v.ID,
			&v.UserID,
			&v.PlateNumber,
			&v.ModelName,
			&v.BatteryTypeID,
			&v.Status,
			&v.CreatedAt,
			&v.UpdatedAt,
		); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vehicles, nil
}
