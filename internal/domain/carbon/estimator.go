package carbon

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/freshlane/grocer-orders/internal/domain/order"
)

// Factors holds the emission model constants. Loaded once at process start
// and injected; never mutated afterwards.
type Factors struct {
	// Category maps a product category to kg CO2 per kg of product.
	Category map[string]decimal.Decimal
	// DefaultCategory is used for categories missing from the table.
	DefaultCategory decimal.Decimal
	// Packaging maps a packaging type to a flat kg CO2 per order.
	Packaging map[PackagingType]decimal.Decimal
	// DeliveryPerKm is kg CO2 per delivery kilometre.
	DeliveryPerKm decimal.Decimal
	// DefaultItemWeightKg estimates line weight as weight-per-item x quantity
	// when no explicit weight is present.
	DefaultItemWeightKg decimal.Decimal
	// DefaultDeliveryKm is assumed when the order carries no distance.
	DefaultDeliveryKm decimal.Decimal
}

// DefaultFactors returns the stock emission model, based on average CO2
// emissions per kg of food product.
func DefaultFactors() Factors {
	return Factors{
		Category: map[string]decimal.Decimal{
			"Meat":       decimal.RequireFromString("27.0"),
			"Dairy":      decimal.RequireFromString("3.2"),
			"Fruits":     decimal.RequireFromString("0.4"),
			"Vegetables": decimal.RequireFromString("0.4"),
			"Grains":     decimal.RequireFromString("0.5"),
			"Beverages":  decimal.RequireFromString("0.3"),
			"Snacks":     decimal.RequireFromString("2.0"),
			"Frozen":     decimal.RequireFromString("1.5"),
			"Canned":     decimal.RequireFromString("1.2"),
		},
		DefaultCategory: decimal.RequireFromString("1.0"),
		Packaging: map[PackagingType]decimal.Decimal{
			PackagingStandard:    decimal.RequireFromString("0.5"),
			PackagingEcoFriendly: decimal.RequireFromString("0.2"),
			PackagingMinimal:     decimal.RequireFromString("0.1"),
		},
		DeliveryPerKm:       decimal.RequireFromString("0.2"),
		DefaultItemWeightKg: decimal.RequireFromString("0.5"),
		DefaultDeliveryKm:   decimal.RequireFromString("5.0"),
	}
}

// CategoryRule maps a product-name substring to a category. Rules are
// evaluated in order; the first match wins.
type CategoryRule struct {
	Substring string
	Category  string
}

// DefaultCategoryRules returns the stock keyword heuristics. Matching is
// case-insensitive substring search over the product name.
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		{"meat", "Meat"}, {"chicken", "Meat"}, {"beef", "Meat"},
		{"pork", "Meat"}, {"lamb", "Meat"}, {"fish", "Meat"},
		{"milk", "Dairy"}, {"cheese", "Dairy"}, {"yogurt", "Dairy"},
		{"butter", "Dairy"}, {"cream", "Dairy"},
		{"apple", "Fruits"}, {"banana", "Fruits"}, {"orange", "Fruits"},
		{"grape", "Fruits"}, {"berry", "Fruits"}, {"fruit", "Fruits"},
		{"vegetable", "Vegetables"}, {"carrot", "Vegetables"},
		{"potato", "Vegetables"}, {"tomato", "Vegetables"},
		{"onion", "Vegetables"}, {"pepper", "Vegetables"},
		{"rice", "Grains"}, {"wheat", "Grains"}, {"bread", "Grains"},
		{"flour", "Grains"}, {"pasta", "Grains"},
		{"drink", "Beverages"}, {"juice", "Beverages"}, {"soda", "Beverages"},
		{"water", "Beverages"}, {"tea", "Beverages"}, {"coffee", "Beverages"},
		{"frozen", "Frozen"},
		{"can", "Canned"}, {"canned", "Canned"},
	}
}

// DefaultCategoryName labels products no rule matches.
const DefaultCategoryName = "Default"

// Estimator computes carbon footprints from the injected factor tables and
// category rules. Pure, no I/O.
type Estimator struct {
	factors Factors
	rules   []CategoryRule
}

// NewEstimator creates an Estimator with the given model.
func NewEstimator(factors Factors, rules []CategoryRule) *Estimator {
	return &Estimator{factors: factors, rules: rules}
}

// Categorize infers the product category from the product name.
func (e *Estimator) Categorize(productName string) string {
	name := strings.ToLower(productName)
	for _, r := range e.rules {
		if strings.Contains(name, r.Substring) {
			return r.Category
		}
	}
	return DefaultCategoryName
}

// Estimate computes the carbon footprint of an order. Line weight is used
// when present, otherwise estimated from quantity. All sub-totals are
// rounded half-up to 4 decimal places.
func (e *Estimator) Estimate(o *order.Order) Footprint {
	type categoryAcc struct {
		kg    decimal.Decimal
		items int
	}
	byCategory := make(map[string]*categoryAcc)
	categoryOrder := make([]string, 0, len(o.Lines))

	productKg := decimal.Zero
	for _, line := range o.Lines {
		category := e.Categorize(line.ProductName)
		factor, ok := e.factors.Category[category]
		if !ok {
			factor = e.factors.DefaultCategory
		}

		weight := line.Weight
		if !weight.IsPositive() {
			weight = e.factors.DefaultItemWeightKg.Mul(decimal.NewFromInt(int64(line.Quantity)))
		}

		lineKg := factor.Mul(weight)
		productKg = productKg.Add(lineKg)

		acc, ok := byCategory[category]
		if !ok {
			acc = &categoryAcc{kg: decimal.Zero}
			byCategory[category] = acc
			categoryOrder = append(categoryOrder, category)
		}
		acc.kg = acc.kg.Add(lineKg)
		acc.items += line.Quantity
	}

	distance := e.factors.DefaultDeliveryKm
	if o.DeliveryDistanceKm.Valid {
		distance = o.DeliveryDistanceKm.Decimal
	}
	deliveryKg := distance.Mul(e.factors.DeliveryPerKm)

	packaging := PackagingType(o.PackagingType)
	packagingKg, ok := e.factors.Packaging[packaging]
	if !ok {
		packaging = PackagingStandard
		packagingKg = e.factors.Packaging[PackagingStandard]
	}

	categories := make([]CategoryFootprint, 0, len(categoryOrder))
	for _, name := range categoryOrder {
		acc := byCategory[name]
		categories = append(categories, CategoryFootprint{
			Category:  name,
			Kg:        acc.kg.Round(4),
			ItemCount: acc.items,
		})
	}

	return Footprint{
		TotalKg:            productKg.Add(deliveryKg).Add(packagingKg).Round(4),
		DeliveryDistanceKm: distance,
		Packaging:          packaging,
		Breakdown: Breakdown{
			ProductKg:   productKg.Round(4),
			DeliveryKg:  deliveryKg.Round(4),
			PackagingKg: packagingKg.Round(4),
		},
		Categories: categories,
	}
}
