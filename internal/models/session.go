package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session statuses. A session leaves ACTIVE exactly once.
const (
	SessionStatusActive    = "ACTIVE"
	SessionStatusCompleted = "COMPLETED"
	SessionStatusDeleted   = "DELETED"
)

// Session represents a vehicle's stay from entry to exit.
type Session struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	VehicleID       int64           `db:"vehicle_id" json:"vehicle_id"`
	LotID           int64           `db:"lot_id" json:"lot_id"`
	PricingRuleID   int64           `db:"pricing_rule_id" json:"pricing_rule_id"`
	Status          string          `db:"status" json:"status"`
	EntryTime       time.Time       `db:"entry_time" json:"entry_time"`
	ExitTime        *time.Time      `db:"exit_time" json:"exit_time,omitempty"`
	DurationMinutes *int            `db:"duration_minutes" json:"duration_minutes,omitempty"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	Note            string          `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}
