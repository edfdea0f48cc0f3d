package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pricing rule scopes.
const (
	RuleScopeLotWide      = "LOT_WIDE"
	RuleScopeAreaSpecific = "AREA_SPECIFIC"
)

// PricingRule is a time-boxed fee schedule. Read-only to the billing core.
type PricingRule struct {
	ID                     int64           `db:"id" json:"id"`
	LotID                  int64           `db:"lot_id" json:"lot_id"`
	AreaID                 *int64          `db:"area_id" json:"area_id,omitempty"`
	VehicleType            string          `db:"vehicle_type" json:"vehicle_type"`
	BaseRate               decimal.Decimal `db:"base_rate" json:"base_rate"`
	DepositFee             decimal.Decimal `db:"deposit_fee" json:"deposit_fee"`
	InitialCharge          decimal.Decimal `db:"initial_charge" json:"initial_charge"`
	InitialDurationMinutes int             `db:"initial_duration_minutes" json:"initial_duration_minutes"`
	FreeMinutes            int             `db:"free_minutes" json:"free_minutes"`
	GracePeriodMinutes     int             `db:"grace_period_minutes" json:"grace_period_minutes"`
	ValidFrom              time.Time       `db:"valid_from" json:"valid_from"`
	ValidUntil             *time.Time      `db:"valid_until" json:"valid_until,omitempty"`
	Scope                  string          `db:"scope" json:"scope"`
	IsActive               bool            `db:"is_active" json:"is_active"`
}

// EffectiveAt reports whether the rule's validity window covers the given instant.
func (r *PricingRule) EffectiveAt(at time.Time) bool {
	if at.Before(r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && !at.Before(*r.ValidUntil) {
		return false
	}
	return true
}
