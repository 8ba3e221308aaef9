package bridge

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestApplyFactor(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		factor string
		want   string
	}{
		{"rounds up to next step", "19.99", "1.15", "23"},
		{"keeps exact step", "20", "1.15", "23"},
		{"above step rounds up", "20.01", "1.15", "23.05"},
		{"factor one leaves step values", "9.95", "1", "9.95"},
		{"factor one rounds cents up", "9.91", "1", "9.95"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyFactor(decimal.RequireFromString(tt.value), decimal.RequireFromString(tt.factor))
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestNetFromGross(t *testing.T) {
	got := NetFromGross(decimal.RequireFromString("119"), decimal.NewFromInt(19))
	assert.True(t, decimal.NewFromInt(100).Equal(got))

	got = NetFromGross(decimal.RequireFromString("10"), decimal.Zero)
	assert.True(t, decimal.NewFromInt(10).Equal(got))
}

func TestPrice_SpecialActive(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)
	special := decimal.NewFromInt(5)

	p := &Price{Value: decimal.NewFromInt(10), SpecialPrice: &special, SpecialStart: &start, SpecialEnd: &end}
	assert.True(t, p.SpecialActive(now))
	assert.False(t, p.SpecialActive(end.Add(time.Minute)))
	assert.False(t, p.SpecialActive(start.Add(-time.Minute)))

	var nilPrice *Price
	assert.False(t, nilPrice.SpecialActive(now))
	assert.False(t, nilPrice.HasRebate())
}

func TestPrice_HasRebate(t *testing.T) {
	qty := 10
	rebate := decimal.NewFromInt(8)
	p := &Price{Value: decimal.NewFromInt(10), RebateQuantity: &qty, RebatePrice: &rebate}
	assert.True(t, p.HasRebate())

	zero := 0
	p.RebateQuantity = &zero
	assert.False(t, p.HasRebate())
}
