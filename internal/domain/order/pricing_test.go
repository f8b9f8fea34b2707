package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLineSubtotal_QuantityBased(t *testing.T) {
	got := LineSubtotal(dec("2.50"), 4, decimal.Zero)
	assert.True(t, dec("10.00").Equal(got), "got %s", got)
}

func TestLineSubtotal_WeightWinsOverQuantity(t *testing.T) {
	// A positive weight drives the subtotal even when a quantity is set.
	got := LineSubtotal(dec("4.00"), 3, dec("1.5"))
	assert.True(t, dec("6.00").Equal(got), "got %s", got)
}

func TestLineSubtotal_ZeroQuantityDefaultsToOne(t *testing.T) {
	got := LineSubtotal(dec("3.00"), 0, decimal.Zero)
	assert.True(t, dec("3.00").Equal(got), "got %s", got)
}

func TestComputePricing_TaxRounding(t *testing.T) {
	// 10.50 * 0.061 = 0.6405, rounds half-up to 0.64.
	p := ComputePricing([]PricingLine{{Price: dec("10.50"), Quantity: 1}}, true)

	assert.True(t, dec("10.50").Equal(p.Subtotal))
	assert.True(t, dec("0.64").Equal(p.Tax), "tax %s", p.Tax)
	assert.True(t, p.DeliveryFee.IsZero())
	assert.True(t, dec("11.14").Equal(p.Total), "total %s", p.Total)
}

func TestComputePricing_DeliveryFeeBelowThreshold(t *testing.T) {
	p := ComputePricing([]PricingLine{{Price: dec("50.00"), Quantity: 1}}, false)

	// 50.00 + 3.05 tax = 53.05 < 100.00, fee applies.
	assert.True(t, dec("10.00").Equal(p.DeliveryFee))
	assert.True(t, dec("63.05").Equal(p.Total), "total %s", p.Total)
}

func TestComputePricing_NoFeeAtThreshold(t *testing.T) {
	// Pick a subtotal whose after-tax amount lands exactly on 100.00:
	// 94.25 * 0.061 = 5.74925 -> 5.75, 94.25 + 5.75 = 100.00.
	p := ComputePricing([]PricingLine{{Price: dec("94.25"), Quantity: 1}}, false)

	require.True(t, dec("100.00").Equal(p.Subtotal.Add(p.Tax)), "after tax %s", p.Subtotal.Add(p.Tax))
	assert.True(t, p.DeliveryFee.IsZero(), "fee %s", p.DeliveryFee)
}

func TestComputePricing_POSNeverChargesDelivery(t *testing.T) {
	p := ComputePricing([]PricingLine{{Price: dec("1.00"), Quantity: 1}}, true)
	assert.True(t, p.DeliveryFee.IsZero())
}

func TestComputePricing_TotalInvariant(t *testing.T) {
	lines := []PricingLine{
		{Price: dec("12.99"), Quantity: 2},
		{Price: dec("4.50"), Weight: dec("1.2")},
		{Price: dec("0.99"), Quantity: 7},
	}

	for _, pos := range []bool{true, false} {
		p := ComputePricing(lines, pos)
		want := p.Subtotal.Add(p.Tax).Add(p.DeliveryFee)
		assert.True(t, want.Equal(p.Total), "pos=%v total %s want %s", pos, p.Total, want)
	}
}

func TestNewOrderNumber_Format(t *testing.T) {
	number := NewOrderNumber()

	require.Len(t, number, 12)
	assert.Equal(t, "ORD-", number[:4])
	for _, r := range number[4:] {
		assert.Contains(t, "0123456789ABCDEF", string(r))
	}

	assert.NotEqual(t, number, NewOrderNumber())
}
