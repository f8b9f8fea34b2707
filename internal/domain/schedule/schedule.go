// Package schedule implements scheduled-order templates: user-defined
// one-time or recurring orders that a periodic sweep materializes into real
// orders.
package schedule

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/freshlane/grocer-orders/internal/domain/order"
)

// ErrNotFound is returned when a scheduled order does not exist or belongs
// to a different user.
var ErrNotFound = errors.New("scheduled order not found")

// OrderType distinguishes one-shot schedules from recurring ones.
type OrderType string

const (
	OneTime   OrderType = "ONE_TIME"
	Recurring OrderType = "RECURRING"
)

// RecurrenceType is the recurrence rule of a RECURRING schedule.
type RecurrenceType string

const (
	Daily   RecurrenceType = "DAILY"
	Weekly  RecurrenceType = "WEEKLY"
	Monthly RecurrenceType = "MONTHLY"
)

// Status is the scheduled-order state machine.
//
//	PENDING --(first due)--> ACTIVE | COMPLETED
//	ACTIVE  --(pause)------> PAUSED --(resume)--> ACTIVE
//	PENDING | ACTIVE | PAUSED --(cancel)--> CANCELLED   (terminal)
//	PENDING | ACTIVE --(last occurrence)--> COMPLETED   (terminal)
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusPaused    Status = "PAUSED"
)

// ValidStatus reports whether s is a known scheduled-order status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusCancelled, StatusPaused:
		return true
	}
	return false
}

// Line is a snapshot cart line owned by a scheduled order. Same shape as an
// order line, with the subtotal materialized at schedule time.
type Line struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Weight      decimal.Decimal `json:"weight"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// ScheduledOrder is a template for automatic future order creation. The
// scheduler mutates only status, CurrentOccurrence and NextExecutionDate;
// everything else is mutated only by the owning user while PENDING.
type ScheduledOrder struct {
	ID                int64
	UserID            int64
	Name              string
	Type              OrderType
	Recurrence        RecurrenceType
	ScheduledDate     time.Time
	ScheduledTime     string
	DeliveryDate      time.Time
	DeliveryTime      string
	Status            Status
	NextExecutionDate time.Time
	EndDate           *time.Time
	// MaxOccurrences caps successful executions; zero means unbounded.
	MaxOccurrences    int
	CurrentOccurrence int
	Lines             []Line
	ShippingAddress   *order.ShippingAddress
	DeliveryPoint     string
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ExecutionStatus is the outcome of one sweep attempt.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "SUCCESS"
	ExecutionFailed  ExecutionStatus = "FAILED"
	ExecutionSkipped ExecutionStatus = "SKIPPED"
)

// ExecutionRecord is an append-only audit entry for one sweep attempt.
// Never mutated after creation.
type ExecutionRecord struct {
	ID               int64
	ScheduledOrderID int64
	ExecutedOrderID  *int64
	ExecutedAt       time.Time
	Status           ExecutionStatus
	ErrorMessage     string
}

// Repository defines persistence for scheduled orders and their audit trail.
type Repository interface {
	Create(ctx context.Context, so *ScheduledOrder) error
	GetByIDAndUser(ctx context.Context, id, userID int64) (*ScheduledOrder, error)
	ListByUser(ctx context.Context, userID int64) ([]ScheduledOrder, error)
	ListByUserAndStatus(ctx context.Context, userID int64, status Status) ([]ScheduledOrder, error)
	ListByUserAndDateRange(ctx context.Context, userID int64, from, to time.Time) ([]ScheduledOrder, error)
	// Update replaces the template fields and lines. The service only calls
	// it for PENDING schedules.
	Update(ctx context.Context, so *ScheduledOrder) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error

	// ListDue returns PENDING/ACTIVE schedules with a next execution date on
	// or before asOf, ascending by next execution date. Rows claimed after
	// staleBefore are excluded: their sweep is still in flight.
	ListDue(ctx context.Context, asOf, staleBefore time.Time) ([]ScheduledOrder, error)
	// Claim marks a due schedule as in-progress iff its next execution date
	// still equals expectedNext and any previous claim is stale. Returns
	// false when another sweep won the row.
	Claim(ctx context.Context, id int64, expectedNext, now, staleBefore time.Time) (bool, error)
	// ReleaseClaim clears the in-progress marker without advancing the
	// schedule, so the next sweep retries.
	ReleaseClaim(ctx context.Context, id int64) error
	// Finalize advances a claimed schedule after a successful execution:
	// sets occurrence, status and (when next is non-nil) the next execution
	// date, and clears the claim. The compare on expectedNext makes the
	// advance a no-op if the row moved underneath the sweep.
	Finalize(ctx context.Context, id int64, expectedNext time.Time, next *time.Time, status Status, occurrence int) (bool, error)

	AppendExecution(ctx context.Context, rec ExecutionRecord) error
	ListExecutions(ctx context.Context, scheduledOrderID int64) ([]ExecutionRecord, error)
}
