package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"parkpay/internal/models"
)

// ErrPricingRuleNotFound indicates no effective rule covers the lookup.
var ErrPricingRuleNotFound = errors.New("pricing rule not found")

const pricingRuleColumns = `
	id, lot_id, area_id, vehicle_type, base_rate, deposit_fee, initial_charge,
	initial_duration_minutes, free_minutes, grace_period_minutes,
	valid_from, valid_until, scope, is_active`

// PricingRuleRepository reads the pricing-rule directory. Read-only to the core.
type PricingRuleRepository struct {
	db *sql.DB
}

// NewPricingRuleRepository returns repository.
func NewPricingRuleRepository(db *sql.DB) *PricingRuleRepository {
	return &PricingRuleRepository{db: db}
}

// Resolve returns the rule effective for the lot and vehicle type at the given
// instant, preferring an area-specific rule over a lot-wide one.
func (r *PricingRuleRepository) Resolve(ctx context.Context, lotID int64, vehicleType string, at time.Time) (*models.PricingRule, error) {
	query := `SELECT` + pricingRuleColumns + `
		FROM pricing_rules
		WHERE lot_id = $1
		  AND vehicle_type = $2
		  AND is_active = TRUE
		  AND valid_from <= $3
		  AND (valid_until IS NULL OR valid_until > $3)
		ORDER BY (scope = 'AREA_SPECIFIC') DESC, valid_from DESC
		LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, lotID, vehicleType, at))
}

// GetByID returns a rule by id.
func (r *PricingRuleRepository) GetByID(ctx context.Context, id int64) (*models.PricingRule, error) {
	query := `SELECT` + pricingRuleColumns + ` FROM pricing_rules WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PricingRuleRepository) scanOne(row *sql.Row) (*models.PricingRule, error) {
	rule := &models.PricingRule{}
	err := row.Scan(
		&rule.ID, &rule.LotID, &rule.AreaID, &rule.VehicleType,
		&rule.BaseRate, &rule.DepositFee, &rule.InitialCharge,
		&rule.InitialDurationMinutes, &rule.FreeMinutes, &rule.GracePeriodMinutes,
		&rule.ValidFrom, &rule.ValidUntil, &rule.Scope, &rule.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPricingRuleNotFound
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}
