package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"parkpay/internal/models"
)

var (
	// ErrInvalidTimeRange is returned when exit time is not after entry time.
	ErrInvalidTimeRange = errors.New("pricing: exit time must be after entry time")
	// ErrRuleNotEffective is returned when the rule's validity window does not cover the billing instant.
	ErrRuleNotEffective = errors.New("pricing: rule is not effective")
	// ErrInvalidRule is returned for a rule that cannot price the stay (zero grace period with time left to bill).
	ErrInvalidRule = errors.New("pricing: grace period must be positive to bill remaining time")
)

// Minutes returns the stay duration in whole minutes, any started minute counts.
func Minutes(entry, exit time.Time) int {
	seconds := int(exit.Sub(entry) / time.Second)
	return (seconds + 59) / 60
}

// Quote computes the charge for a stay under the given rule.
//
// A stay within the free window costs nothing. Beyond it, the initial charge
// covers the initial duration; time past that is billed per started grace
// block at the base rate, on top of the initial charge.
func Quote(entry, exit time.Time, rule *models.PricingRule, at time.Time) (decimal.Decimal, error) {
	if !exit.After(entry) {
		return decimal.Zero, ErrInvalidTimeRange
	}
	if !rule.EffectiveAt(at) {
		return decimal.Zero, ErrRuleNotEffective
	}

	duration := Minutes(entry, exit)
	if duration <= rule.FreeMinutes {
		return decimal.Zero, nil
	}

	remaining := duration - rule.InitialDurationMinutes
	if remaining <= 0 {
		return rule.InitialCharge, nil
	}
	if rule.GracePeriodMinutes <= 0 {
		return decimal.Zero, ErrInvalidRule
	}

	blocks := (remaining + rule.GracePeriodMinutes - 1) / rule.GracePeriodMinutes
	charge := rule.BaseRate.Mul(decimal.NewFromInt(int64(blocks)))
	return rule.InitialCharge.Add(charge), nil
}
