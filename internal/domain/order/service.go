package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sentinel errors for order validation.
var (
	ErrEmptyLines     = errors.New("order lines required")
	ErrMissingAddress = errors.New("shipping address required for delivery orders")
	ErrInvalidStatus  = errors.New("unknown order status")
)

// InvalidLineError indicates an order line that fails validation.
type InvalidLineError struct {
	ProductID int64
	Reason    string
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("invalid line for product %d: %s", e.ProductID, e.Reason)
}

// StockDecrementer decrements catalog stock for a product. Implementations
// call the catalog service; failures are handled by the caller as
// best-effort.
type StockDecrementer interface {
	DecrementStock(ctx context.Context, productID int64, quantity int) error
}

// EventPublisher publishes order lifecycle notifications. Publish failures
// never fail the triggering operation.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, o *Order) error
	PublishPaymentSucceeded(ctx context.Context, orderNumber string, userID int64) error
}

// FootprintRecorder computes and persists the carbon footprint of a freshly
// created order. Implementations update the order in place with the computed
// figures.
type FootprintRecorder interface {
	RecordOrderFootprint(ctx context.Context, o *Order) error
}

// LineInput is a requested order line.
type LineInput struct {
	ProductID   int64
	ProductName string
	Price       decimal.Decimal
	Quantity    int
	Weight      decimal.Decimal
}

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	UserID             int64
	Lines              []LineInput
	PaymentMethod      PaymentMethod
	POS                bool
	ShippingAddress    *ShippingAddress
	DeliveryDistanceKm decimal.NullDecimal
	PackagingType      string
}

// Service owns order creation and status transitions, and triggers the
// stock-decrement, footprint and event side effects.
type Service struct {
	orders    Repository
	stock     StockDecrementer
	events    EventPublisher
	footprint FootprintRecorder
}

// NewService creates an order Service with the required collaborators.
func NewService(
	orders Repository,
	stock StockDecrementer,
	events EventPublisher,
	footprint FootprintRecorder,
) *Service {
	return &Service{
		orders:    orders,
		stock:     stock,
		events:    events,
		footprint: footprint,
	}
}

// CreateOrder validates the request, prices it, persists the order, and runs
// the best-effort side effects: carbon footprint, stock decrement (only when
// the order lands in CONFIRMED) and the order-created event. Side-effect
// failures are logged and never fail the request.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	pricingLines := make([]PricingLine, len(req.Lines))
	lines := make([]Line, len(req.Lines))
	for i, in := range req.Lines {
		qty := in.Quantity
		if qty <= 0 {
			qty = 1
		}
		pricingLines[i] = PricingLine{Price: in.Price, Quantity: qty, Weight: in.Weight}
		lines[i] = Line{
			ProductID:   in.ProductID,
			ProductName: in.ProductName,
			Price:       in.Price,
			Quantity:    qty,
			Weight:      in.Weight,
			Subtotal:    LineSubtotal(in.Price, qty, in.Weight),
		}
	}

	pricing := ComputePricing(pricingLines, req.POS)

	status := StatusPending
	if req.POS {
		// Cash or card settled at the register.
		status = StatusConfirmed
	}

	o := &Order{
		Number:             NewOrderNumber(),
		UserID:             req.UserID,
		Lines:              lines,
		Subtotal:           pricing.Subtotal,
		Tax:                pricing.Tax,
		DeliveryFee:        pricing.DeliveryFee,
		Total:              pricing.Total,
		Status:             status,
		PaymentMethod:      req.PaymentMethod,
		POS:                req.POS,
		ShippingAddress:    req.ShippingAddress,
		DeliveryDistanceKm: req.DeliveryDistanceKm,
		PackagingType:      req.PackagingType,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	if err := s.footprint.RecordOrderFootprint(ctx, o); err != nil {
		zctx.From(ctx).Warn("Carbon footprint computation failed",
			zap.String("order", o.Number), zap.Error(err))
	}

	if o.Status == StatusConfirmed {
		s.decrementStockForOrder(ctx, o)

		// POS payments settle at the register.
		if err := s.events.PublishPaymentSucceeded(ctx, o.Number, o.UserID); err != nil {
			zctx.From(ctx).Error("Payment event publish failed",
				zap.String("order", o.Number), zap.Error(err))
		}
	}

	if err := s.events.PublishOrderCreated(ctx, o); err != nil {
		zctx.From(ctx).Error("Order created event publish failed",
			zap.String("order", o.Number), zap.Error(err))
	}

	return o, nil
}

func validateCreate(req CreateOrderRequest) error {
	if len(req.Lines) == 0 {
		return ErrEmptyLines
	}
	for _, l := range req.Lines {
		if l.Price.IsNegative() {
			return &InvalidLineError{ProductID: l.ProductID, Reason: "negative price"}
		}
		if l.Weight.IsNegative() {
			return &InvalidLineError{ProductID: l.ProductID, Reason: "negative weight"}
		}
		if !l.Weight.IsPositive() && l.Quantity < 0 {
			return &InvalidLineError{ProductID: l.ProductID, Reason: "negative quantity"}
		}
	}
	if !req.POS && req.ShippingAddress == nil {
		return ErrMissingAddress
	}
	return nil
}

// GetByID returns the order with the given id.
func (s *Service) GetByID(ctx context.Context, id int64) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// GetByNumber returns the order with the given order number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Order, error) {
	return s.orders.GetByNumber(ctx, number)
}

// ListByUser returns the user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// List returns all orders, optionally filtered by the POS flag.
func (s *Service) List(ctx context.Context, posFilter *bool) ([]Order, error) {
	return s.orders.List(ctx, posFilter)
}

// UpdateStatus moves the order to the given status. The transition itself is
// unconditional, but the stock decrement fires exactly once, on the edge
// into CONFIRMED: re-entering CONFIRMED does not decrement again.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.applyStatus(ctx, o, status)
}

// UpdateStatusByNumber is UpdateStatus keyed by order number. Used by the
// payment collaborator, which only knows the public order number.
func (s *Service) UpdateStatusByNumber(ctx context.Context, number string, status Status) (*Order, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	o, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.applyStatus(ctx, o, status)
}

func (s *Service) applyStatus(ctx context.Context, o *Order, status Status) (*Order, error) {
	previous := o.Status
	if err := s.orders.UpdateStatus(ctx, o.ID, status); err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	o.Status = status

	if previous != StatusConfirmed && status == StatusConfirmed {
		zctx.From(ctx).Info("Order confirmed, decrementing stock",
			zap.String("order", o.Number), zap.String("previous", string(previous)))
		s.decrementStockForOrder(ctx, o)

		if err := s.events.PublishPaymentSucceeded(ctx, o.Number, o.UserID); err != nil {
			zctx.From(ctx).Error("Payment event publish failed",
				zap.String("order", o.Number), zap.Error(err))
		}
	}

	return o, nil
}

// decrementStockForOrder decrements stock for every line. Weight-based lines
// decrement by one unit since the weight is already reflected in the price.
// Per-line failures are logged and do not block the remaining lines.
func (s *Service) decrementStockForOrder(ctx context.Context, o *Order) {
	lg := zctx.From(ctx)
	for _, line := range o.Lines {
		qty := line.Quantity
		if line.Weight.IsPositive() {
			qty = 1
		}
		if err := s.stock.DecrementStock(ctx, line.ProductID, qty); err != nil {
			lg.Error("Stock decrement failed",
				zap.String("order", o.Number),
				zap.Int64("product", line.ProductID),
				zap.Int("quantity", qty),
				zap.Error(err))
			continue
		}
	}
}

// ReorderLines returns the lines of one of the user's orders so they can be
// added back to a cart. Orders of other users are reported as not found.
func (s *Service) ReorderLines(ctx context.Context, orderID, userID int64) ([]Line, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o.Lines, nil
}
