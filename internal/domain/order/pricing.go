package order

import "github.com/shopspring/decimal"

// Utah state grocery tax rate: 6.1%.
var taxRate = decimal.RequireFromString("0.061")

// Delivery fee applied when the post-tax amount is below the threshold.
// Point-of-sale orders never pay a delivery fee.
var (
	deliveryFee           = decimal.RequireFromString("10.00")
	freeDeliveryThreshold = decimal.RequireFromString("100.00")
)

// PricingLine is the pricing-relevant projection of an order line.
type PricingLine struct {
	Price    decimal.Decimal
	Quantity int
	Weight   decimal.Decimal
}

// Pricing holds the computed money amounts for an order.
// Invariant: Total = Subtotal + Tax + DeliveryFee.
type Pricing struct {
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// LineSubtotal computes the subtotal of a single line: price x weight when a
// positive weight is present, otherwise price x quantity (quantity defaults
// to 1 when non-positive).
func LineSubtotal(price decimal.Decimal, quantity int, weight decimal.Decimal) decimal.Decimal {
	if weight.IsPositive() {
		return price.Mul(weight)
	}
	if quantity <= 0 {
		quantity = 1
	}
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// ComputePricing derives subtotal, tax, delivery fee and total for a set of
// lines. Side-effect free; the caller validates that lines are non-empty and
// prices non-negative.
func ComputePricing(lines []PricingLine, pos bool) Pricing {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineSubtotal(l.Price, l.Quantity, l.Weight))
	}

	tax := subtotal.Mul(taxRate).Round(2)
	afterTax := subtotal.Add(tax)

	fee := decimal.Zero
	if !pos && afterTax.LessThan(freeDeliveryThreshold) {
		fee = deliveryFee
	}

	return Pricing{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: fee,
		Total:       afterTax.Add(fee),
	}
}
