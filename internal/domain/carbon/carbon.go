// Package carbon estimates per-order CO2 footprints and aggregates a user's
// footprint history. Estimates are best effort: callers must never let a
// failed estimate block order creation.
package carbon

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PackagingType enumerates the supported packaging options.
type PackagingType string

const (
	PackagingStandard    PackagingType = "STANDARD"
	PackagingEcoFriendly PackagingType = "ECO_FRIENDLY"
	PackagingMinimal     PackagingType = "MINIMAL"
)

// Breakdown splits a footprint into its product, delivery and packaging
// contributions, each in kg CO2.
type Breakdown struct {
	ProductKg   decimal.Decimal
	DeliveryKg  decimal.Decimal
	PackagingKg decimal.Decimal
}

// CategoryFootprint is the footprint contributed by one product category.
type CategoryFootprint struct {
	Category  string
	Kg        decimal.Decimal
	ItemCount int
}

// Footprint is a computed carbon estimate for a single order.
type Footprint struct {
	TotalKg            decimal.Decimal
	DeliveryDistanceKm decimal.Decimal
	Packaging          PackagingType
	Breakdown          Breakdown
	Categories         []CategoryFootprint
}

// HistoryEntry is an append-only per-order footprint record. The order id is
// a plain back-reference: an order may be deleted independently of history
// retention.
type HistoryEntry struct {
	ID          int64
	UserID      int64
	OrderID     int64
	FootprintKg decimal.Decimal
	OrderDate   time.Time
}

// HistoryRepository persists footprint history records.
type HistoryRepository interface {
	Append(ctx context.Context, entry HistoryEntry) error
	// ListByUser returns the user's history, newest order date first.
	ListByUser(ctx context.Context, userID int64) ([]HistoryEntry, error)
}
