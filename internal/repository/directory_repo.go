package repository

import (
	"context"
	"database/sql"
	"errors"

	"parkpay/internal/models"
)

var (
	// ErrLotNotFound indicates no active parking lot matches the id.
	ErrLotNotFound = errors.New("parking lot not found")
	// ErrVehicleNotFound indicates no active vehicle matches the id.
	ErrVehicleNotFound = errors.New("vehicle not found")
)

// DirectoryRepository serves lot and vehicle existence checks.
type DirectoryRepository struct {
	db *sql.DB
}

// NewDirectoryRepository returns repository.
func NewDirectoryRepository(db *sql.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// GetLot returns an active lot by id.
func (r *DirectoryRepository) GetLot(ctx context.Context, id int64) (*models.ParkingLot, error) {
	const query = `SELECT id, name, is_active FROM parking_lots WHERE id = $1 AND is_active = TRUE`
	lot := &models.ParkingLot{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&lot.ID, &lot.Name, &lot.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLotNotFound
	}
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// GetVehicle returns an active vehicle by id.
func (r *DirectoryRepository) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	const query = `
		SELECT id, user_id, plate, vehicle_type, is_active
		FROM vehicles
		WHERE id = $1 AND is_active = TRUE
	`
	v := &models.Vehicle{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.UserID, &v.Plate, &v.VehicleType, &v.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
