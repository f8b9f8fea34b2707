package carbon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshlane/grocer-orders/internal/domain/order"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEstimator() *Estimator {
	return NewEstimator(DefaultFactors(), DefaultCategoryRules())
}

func TestCategorize(t *testing.T) {
	e := newTestEstimator()

	tests := []struct {
		name     string
		expected string
	}{
		{"Chicken Breast", "Meat"},
		{"Smoked Fish Fillet", "Meat"},
		{"Whole Milk", "Dairy"},
		{"Greek Yogurt", "Dairy"},
		{"Banana Bundle", "Fruits"},
		{"Cherry Tomatoes", "Vegetables"},
		{"Basmati Rice", "Grains"},
		{"Orange Juice", "Fruits"}, // "orange" rule fires before "juice"
		{"Sparkling Water", "Beverages"},
		{"Frozen Peas", "Frozen"},
		{"Olive Oil", "Default"},
		{"", "Default"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, e.Categorize(tc.name), "product %q", tc.name)
	}
}

func TestEstimate_KnownOrder(t *testing.T) {
	e := newTestEstimator()

	// Two chicken breasts with no explicit weight: 2 x 0.5kg x 27.0 = 27.0.
	// Default 5.0km delivery x 0.2 = 1.0. Standard packaging = 0.5.
	o := &order.Order{
		Lines: []order.Line{
			{ProductID: 1, ProductName: "Chicken Breast", Price: dec("12.99"), Quantity: 2},
		},
	}

	fp := e.Estimate(o)

	assert.True(t, dec("27.0").Equal(fp.Breakdown.ProductKg), "product %s", fp.Breakdown.ProductKg)
	assert.True(t, dec("1.0").Equal(fp.Breakdown.DeliveryKg), "delivery %s", fp.Breakdown.DeliveryKg)
	assert.True(t, dec("0.5").Equal(fp.Breakdown.PackagingKg))
	assert.True(t, dec("28.5").Equal(fp.TotalKg), "total %s", fp.TotalKg)
	assert.Equal(t, PackagingStandard, fp.Packaging)
	assert.True(t, dec("5.0").Equal(fp.DeliveryDistanceKm))
}

func TestEstimate_ExplicitWeightAndDistance(t *testing.T) {
	e := newTestEstimator()

	o := &order.Order{
		Lines: []order.Line{
			{ProductID: 1, ProductName: "Cherry Tomatoes", Weight: dec("1.2"), Quantity: 1},
		},
		DeliveryDistanceKm: decimal.NullDecimal{Decimal: dec("2.5"), Valid: true},
		PackagingType:      string(PackagingEcoFriendly),
	}

	fp := e.Estimate(o)

	// 1.2kg x 0.4 = 0.48; 2.5km x 0.2 = 0.5; eco packaging 0.2.
	assert.True(t, dec("0.48").Equal(fp.Breakdown.ProductKg), "product %s", fp.Breakdown.ProductKg)
	assert.True(t, dec("0.5").Equal(fp.Breakdown.DeliveryKg))
	assert.True(t, dec("0.2").Equal(fp.Breakdown.PackagingKg))
	assert.True(t, dec("1.18").Equal(fp.TotalKg), "total %s", fp.TotalKg)
	assert.Equal(t, PackagingEcoFriendly, fp.Packaging)
}

func TestEstimate_UnknownPackagingFallsBackToStandard(t *testing.T) {
	e := newTestEstimator()

	o := &order.Order{
		Lines:         []order.Line{{ProductName: "Olive Oil", Quantity: 1}},
		PackagingType: "GIFT_WRAP",
	}

	fp := e.Estimate(o)
	assert.Equal(t, PackagingStandard, fp.Packaging)
	assert.True(t, dec("0.5").Equal(fp.Breakdown.PackagingKg))
}

func TestEstimate_CategoriesPreserveFirstSeenOrder(t *testing.T) {
	e := newTestEstimator()

	o := &order.Order{
		Lines: []order.Line{
			{ProductName: "Whole Milk", Quantity: 1},
			{ProductName: "Chicken Breast", Quantity: 1},
			{ProductName: "Cheddar Cheese", Quantity: 2},
		},
	}

	fp := e.Estimate(o)

	require.Len(t, fp.Categories, 2)
	assert.Equal(t, "Dairy", fp.Categories[0].Category)
	assert.Equal(t, 3, fp.Categories[0].ItemCount)
	assert.Equal(t, "Meat", fp.Categories[1].Category)
	assert.Equal(t, 1, fp.Categories[1].ItemCount)

	// Dairy: (1 + 2) x 0.5kg x 3.2 = 4.8.
	assert.True(t, dec("4.8").Equal(fp.Categories[0].Kg), "dairy %s", fp.Categories[0].Kg)
}

func TestEstimate_RoundsToFourDecimals(t *testing.T) {
	factors := DefaultFactors()
	factors.Category["Meat"] = dec("26.12345")

	e := NewEstimator(factors, DefaultCategoryRules())
	o := &order.Order{
		Lines: []order.Line{{ProductName: "Chicken Breast", Weight: dec("0.333"), Quantity: 1}},
	}

	fp := e.Estimate(o)
	// 26.12345 x 0.333 = 8.69910885 -> 8.6991.
	assert.True(t, dec("8.6991").Equal(fp.Breakdown.ProductKg), "product %s", fp.Breakdown.ProductKg)
}
