package bridge

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	priceStep    = decimal.NewFromInt(20)
	hundred      = decimal.NewFromInt(100)
	defaultScale = int32(2)
)

// Price is a sales price with an optional quantity rebate and an optional
// scheduled special price.
type Price struct {
	Value          decimal.Decimal
	RebateQuantity *int
	RebatePrice    *decimal.Decimal
	SpecialPrice   *decimal.Decimal
	SpecialStart   *time.Time
	SpecialEnd     *time.Time
}

// NewPrice creates a price with only a base value
func NewPrice(value decimal.Decimal) *Price {
	return &Price{Value: value}
}

// HasRebate reports whether a quantity rebate is configured
func (p *Price) HasRebate() bool {
	return p != nil && p.RebateQuantity != nil && p.RebatePrice != nil && *p.RebateQuantity > 0
}

// SpecialActive reports whether the special price applies at t
func (p *Price) SpecialActive(t time.Time) bool {
	if p == nil || p.SpecialPrice == nil {
		return false
	}
	if p.SpecialStart != nil && t.Before(*p.SpecialStart) {
		return false
	}
	if p.SpecialEnd != nil && t.After(*p.SpecialEnd) {
		return false
	}
	return true
}

// Update copies every field of other onto p
func (p *Price) Update(other *Price) {
	if other == nil {
		return
	}
	*p = *other
}

// ApplyFactor multiplies a price by a marketplace factor and rounds up to the
// next multiple of 0.05.
func ApplyFactor(value, factor decimal.Decimal) decimal.Decimal {
	return value.Mul(factor).Mul(priceStep).Ceil().Div(priceStep).Round(defaultScale)
}

// NetFromGross removes a percentage tax rate from a gross amount
func NetFromGross(gross, ratePercent decimal.Decimal) decimal.Decimal {
	divisor := decimal.NewFromInt(1).Add(ratePercent.Div(hundred))
	return gross.Div(divisor).Round(defaultScale)
}
