package repository

import (
	"context"
	"database/sql"

	"voltswap/internal/models"
)

// BatteryRepository handles persistence of station batteries.
type BatteryRepository struct {
	db *sql.DB
}

// NewBatteryRepository returns repository.
func NewBatteryRepository(db *sql.DB) *BatteryRepository {
	return &BatteryRepository{db: db}
}

// ListByStation returns all batteries currently held at a station.
func (r *BatteryRepository) ListByStation(ctx context.Context, stationID string) ([]models.Battery, error) {
	const query = `
		SELECT id, station_id, battery_type_id, status, charge_level, updated_at
		FROM batteries
		WHERE station_id = $1
		ORDER BY charge_level DESC
	`
	rows, err := r.db.QueryContext(ctx, query, stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batteries []models.Battery
	for rows.Next() {
		var b models.Battery
		if err := rows.Scan(
			&b.ID,
			&b.StationID,
			&b.BatteryTypeID,
			&b.Status,
			&b.ChargeLevel,
			&b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		batteries = append(batteries, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batteries, nil
}

// UpdateStatus changes a battery's status.
func (r *BatteryRepository) UpdateStatus(ctx context.Context, id, status string) error {
	const query = `
		UPDATE batteries
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
