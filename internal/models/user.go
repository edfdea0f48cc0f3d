package models

import "time"

// User is an account in the user directory.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Vehicle is a registered vehicle in the directory.
type Vehicle struct {
	ID          int64  `db:"id" json:"id"`
	UserID      int64  `db:"user_id" json:"user_id"`
	Plate       string `db:"plate" json:"plate"`
	VehicleType string `db:"vehicle_type" json:"vehicle_type"`
	IsActive    bool   `db:"is_active" json:"is_active"`
}

// ParkingLot is a lot entry in the directory.
type ParkingLot struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	IsActive bool   `db:"is_active" json:"is_active"`
}
