package carbon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/freshlane/grocer-orders/internal/domain/order"
)

// OrderFootprintStore persists computed footprint figures onto the order row.
type OrderFootprintStore interface {
	SetOrderFootprint(ctx context.Context, orderID int64, kg, distanceKm decimal.Decimal, packaging PackagingType) error
}

// Service wires the estimator to the footprint history and the order store.
type Service struct {
	estimator *Estimator
	history   HistoryRepository
	orders    OrderFootprintStore
}

// NewService creates a carbon Service.
func NewService(estimator *Estimator, history HistoryRepository, orders OrderFootprintStore) *Service {
	return &Service{estimator: estimator, history: history, orders: orders}
}

// Estimate computes the footprint of an order without persisting anything.
func (s *Service) Estimate(o *order.Order) Footprint {
	return s.estimator.Estimate(o)
}

// RecordOrderFootprint estimates the footprint of a freshly created order,
// persists it on the order row and in the per-user history, and updates the
// order in place. Implements the order service's FootprintRecorder.
func (s *Service) RecordOrderFootprint(ctx context.Context, o *order.Order) error {
	fp := s.estimator.Estimate(o)

	if err := s.orders.SetOrderFootprint(ctx, o.ID, fp.TotalKg, fp.DeliveryDistanceKm, fp.Packaging); err != nil {
		return errors.Wrap(err, "store order footprint")
	}

	orderDate := o.CreatedAt
	if err := s.history.Append(ctx, HistoryEntry{
		UserID:      o.UserID,
		OrderID:     o.ID,
		FootprintKg: fp.TotalKg,
		OrderDate:   orderDate,
	}); err != nil {
		return errors.Wrap(err, "append footprint history")
	}

	o.CarbonFootprintKg = decimal.NullDecimal{Decimal: fp.TotalKg, Valid: true}
	o.DeliveryDistanceKm = decimal.NullDecimal{Decimal: fp.DeliveryDistanceKm, Valid: true}
	o.PackagingType = string(fp.Packaging)
	return nil
}
