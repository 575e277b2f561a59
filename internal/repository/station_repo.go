package repository

import (
	"context"
	"database/sql"
	"errors"

	"voltswap/internal/models"
)

// ErrStationNotFound indicates no station matched the lookup.
var ErrStationNotFound = errors.New("station not found")

// StationRepository handles persistence of swap stations.
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository returns repository.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// List returns all stations.
func (r *StationRepository) List(ctx context.Context) ([]models.Station, error) {
	const query = `
		SELECT id, name, address, status, latitude, longitude, created_at
		FROM stations
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var s models.Station
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Address,
			&s.Status,
			&s.Latitude,
			&s.Longitude,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		stations = append(stations, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stations, nil
}

// GetByID returns a single station.
func (r *StationRepository) GetByID(ctx context.Context, id string) (*models.Station, error) {
	const query = `
		SELECT id, name, address, status, latitude, longitude, created_at
		FROM stations
		WHERE id = $1
	`
	var s models.Station
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.Name,
		&s.Address,
		&s.Status,
		&s.Latitude,
		&s.Longitude,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStationNotFound
		}
		return nil, err
	}
	return &s, nil
}
