package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist or belongs
// to a different user.
var ErrNotFound = errors.New("order not found")

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// ValidStatus reports whether s is a known order status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// PaymentMethod enumerates how an order was (or will be) paid.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "CASH"
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentQRCode     PaymentMethod = "QR_CODE"
	PaymentOnline     PaymentMethod = "ONLINE"
)

// ShippingAddress is the delivery address snapshot stored with an order.
type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// Line is a single order line. Product name and price are snapshots taken at
// order time, not live catalog references. Exactly one of Quantity or Weight
// drives the line subtotal: a positive Weight wins, otherwise Quantity (which
// defaults to 1).
type Line struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Weight      decimal.Decimal `json:"weight"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Order is a placed customer order. Once created, only the status and the
// carbon-footprint fields are mutated.
type Order struct {
	ID                 int64
	Number             string
	UserID             int64
	Lines              []Line
	Subtotal           decimal.Decimal
	Tax                decimal.Decimal
	DeliveryFee        decimal.Decimal
	Total              decimal.Decimal
	Status             Status
	PaymentMethod      PaymentMethod
	POS                bool
	ShippingAddress    *ShippingAddress
	CarbonFootprintKg  decimal.NullDecimal
	DeliveryDistanceKm decimal.NullDecimal
	PackagingType      string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewOrderNumber generates an order number of the form ORD-XXXXXXXX where X
// is an uppercase hex digit.
func NewOrderNumber() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ORD-" + strings.ToUpper(raw[:8])
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	// List returns all orders, optionally filtered by the point-of-sale flag.
	List(ctx context.Context, posFilter *bool) ([]Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	// ListByCreatedRange returns orders created in [from, to) whose status is
	// one of the given statuses.
	ListByCreatedRange(ctx context.Context, from, to time.Time, statuses []Status) ([]Order, error)
}
