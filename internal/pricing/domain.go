package pricing

import (
	"errors"
	"time"
)

// CommissionBasis selects how a location's commission is computed.
type CommissionBasis string

const (
	// BasisPercentGross pays the venue a share of gross sales, expressed in
	// basis points so the rule stays in integer arithmetic.
	BasisPercentGross CommissionBasis = "percent_gross"
	// BasisFlatMonthly pays the venue a fixed amount per month.
	BasisFlatMonthly CommissionBasis = "flat_monthly"
)

func (b CommissionBasis) Valid() bool {
	return b == BasisPercentGross || b == BasisFlatMonthly
}

// CommissionRule is a venue payout agreement effective over a date range.
// EffectiveTo nil means open-ended.
type CommissionRule struct {
	ID            int64           `json:"id"`
	LocationID    int64           `json:"location_id"`
	Basis         CommissionBasis `json:"basis"`
	RateBps       int64           `json:"rate_bps,omitempty"`
	FlatCents     int64           `json:"flat_cents,omitempty"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PriceOverride pins a product's vend price on one machine, overriding the
// catalog unit price.
type PriceOverride struct {
	ID         int64     `json:"id"`
	MachineID  int64     `json:"machine_id"`
	ProductID  int64     `json:"product_id"`
	PriceCents int64     `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CreateRuleRequest struct {
	LocationID    int64      `json:"location_id" validate:"required,gt=0"`
	Basis         string     `json:"basis" validate:"required,oneof=percent_gross flat_monthly"`
	RateBps       int64      `json:"rate_bps" validate:"gte=0,lte=10000"`
	FlatCents     int64      `json:"flat_cents" validate:"gte=0"`
	EffectiveFrom time.Time  `json:"effective_from" validate:"required"`
	EffectiveTo   *time.Time `json:"effective_to"`
}

type SetOverrideRequest struct {
	MachineID  int64 `json:"machine_id" validate:"required,gt=0"`
	ProductID  int64 `json:"product_id" validate:"required,gt=0"`
	PriceCents int64 `json:"price_cents" validate:"required,gt=0"`
}

var (
	ErrRuleNotFound = errors.New("commission rule not found")
	ErrInvalidBasis = errors.New("invalid commission basis")
	// ErrRuleOverlap rejects a rule whose effective range collides with an
	// existing rule for the same location.
	ErrRuleOverlap = errors.New("commission rule overlaps an existing rule")
	// ErrZeroRate rejects rules that would never pay anything out.
	ErrZeroRate = errors.New("commission rule needs a rate or flat amount")
)
