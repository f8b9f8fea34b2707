package schedule

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/freshlane/grocer-orders/internal/domain/order"
)

// Validation errors.
var (
	ErrEmptyLines        = errors.New("scheduled order lines required")
	ErrMissingDate       = errors.New("scheduled date required")
	ErrRecurrenceMissing = errors.New("recurrence type is required for recurring orders")
	ErrRecurrenceSet     = errors.New("recurrence type is only valid for recurring orders")
	ErrInvalidOccurrence = errors.New("max occurrences must be positive")
)

// Policy violation errors: the operation is known but the schedule's current
// state forbids it. No state change happens.
var (
	ErrUpdateNotPending  = errors.New("only pending scheduled orders can be updated")
	ErrPauseNotRecurring = errors.New("only recurring orders can be paused")
	ErrResumeNotPaused   = errors.New("only paused orders can be resumed")
	ErrCancelTerminal    = errors.New("scheduled order is already completed or cancelled")
	ErrDeleteForbidden   = errors.New("only pending or cancelled orders can be deleted")
)

// LineInput is a requested snapshot line.
type LineInput struct {
	ProductID   int64
	ProductName string
	Price       decimal.Decimal
	Quantity    int
	Weight      decimal.Decimal
}

// CreateRequest holds the input for creating or updating a scheduled order.
type CreateRequest struct {
	Name            string
	Type            OrderType
	Recurrence      RecurrenceType
	ScheduledDate   time.Time
	ScheduledTime   string
	DeliveryDate    time.Time
	DeliveryTime    string
	EndDate         *time.Time
	MaxOccurrences  int
	Lines           []LineInput
	ShippingAddress *order.ShippingAddress
	DeliveryPoint   string
	Notes           string
}

// Service owns user-facing scheduled-order operations. The sweep side lives
// in Sweeper.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a schedule Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func validateRequest(req CreateRequest) error {
	if len(req.Lines) == 0 {
		return ErrEmptyLines
	}
	if req.ScheduledDate.IsZero() {
		return ErrMissingDate
	}
	if req.Type == Recurring && req.Recurrence == "" {
		return ErrRecurrenceMissing
	}
	if req.Type == OneTime && req.Recurrence != "" {
		return ErrRecurrenceSet
	}
	if req.MaxOccurrences < 0 {
		return ErrInvalidOccurrence
	}
	return nil
}

func buildLines(inputs []LineInput) []Line {
	lines := make([]Line, len(inputs))
	for i, in := range inputs {
		qty := in.Quantity
		if qty <= 0 {
			qty = 1
		}
		lines[i] = Line{
			ProductID:   in.ProductID,
			ProductName: in.ProductName,
			Price:       in.Price,
			Quantity:    qty,
			Weight:      in.Weight,
			Subtotal:    order.LineSubtotal(in.Price, qty, in.Weight),
		}
	}
	return lines
}

// seedNextExecution derives the initial next execution date: the scheduled
// date for one-time orders, one period after it for recurring ones.
func seedNextExecution(req CreateRequest) time.Time {
	if req.Type == Recurring {
		return NextDate(req.ScheduledDate, req.Recurrence)
	}
	return req.ScheduledDate
}

// Create validates and persists a new PENDING scheduled order for the user.
func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (*ScheduledOrder, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	deliveryDate := req.DeliveryDate
	if deliveryDate.IsZero() {
		deliveryDate = req.ScheduledDate
	}
	deliveryTime := req.DeliveryTime
	if deliveryTime == "" {
		deliveryTime = req.ScheduledTime
	}

	so := &ScheduledOrder{
		UserID:            userID,
		Name:              req.Name,
		Type:              req.Type,
		Recurrence:        req.Recurrence,
		ScheduledDate:     req.ScheduledDate,
		ScheduledTime:     req.ScheduledTime,
		DeliveryDate:      deliveryDate,
		DeliveryTime:      deliveryTime,
		Status:            StatusPending,
		NextExecutionDate: seedNextExecution(req),
		EndDate:           req.EndDate,
		MaxOccurrences:    req.MaxOccurrences,
		CurrentOccurrence: 0,
		Lines:             buildLines(req.Lines),
		ShippingAddress:   req.ShippingAddress,
		DeliveryPoint:     req.DeliveryPoint,
		Notes:             req.Notes,
	}

	if err := s.repo.Create(ctx, so); err != nil {
		return nil, errors.Wrap(err, "create scheduled order")
	}
	return so, nil
}

// Get returns one of the user's scheduled orders.
func (s *Service) Get(ctx context.Context, id, userID int64) (*ScheduledOrder, error) {
	return s.repo.GetByIDAndUser(ctx, id, userID)
}

// ListByUser returns the user's scheduled orders, newest scheduled date
// first.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]ScheduledOrder, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListByUserAndStatus filters the user's scheduled orders by status.
func (s *Service) ListByUserAndStatus(ctx context.Context, userID int64, status Status) ([]ScheduledOrder, error) {
	return s.repo.ListByUserAndStatus(ctx, userID, status)
}

// ListByUserAndDateRange returns the user's scheduled orders with a
// scheduled date in [from, to], ascending.
func (s *Service) ListByUserAndDateRange(ctx context.Context, userID int64, from, to time.Time) ([]ScheduledOrder, error) {
	return s.repo.ListByUserAndDateRange(ctx, userID, from, to)
}

// Update replaces the template of a PENDING scheduled order, including its
// lines and snapshots, and re-seeds the next execution date.
func (s *Service) Update(ctx context.Context, id, userID int64, req CreateRequest) (*ScheduledOrder, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	so, err := s.repo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if so.Status != StatusPending {
		return nil, ErrUpdateNotPending
	}

	so.Name = req.Name
	so.Type = req.Type
	so.Recurrence = req.Recurrence
	so.ScheduledDate = req.ScheduledDate
	so.ScheduledTime = req.ScheduledTime
	so.DeliveryDate = req.DeliveryDate
	if so.DeliveryDate.IsZero() {
		so.DeliveryDate = req.ScheduledDate
	}
	so.DeliveryTime = req.DeliveryTime
	so.EndDate = req.EndDate
	so.MaxOccurrences = req.MaxOccurrences
	so.NextExecutionDate = seedNextExecution(req)
	so.Lines = buildLines(req.Lines)
	so.ShippingAddress = req.ShippingAddress
	so.DeliveryPoint = req.DeliveryPoint
	so.Notes = req.Notes

	if err := s.repo.Update(ctx, so); err != nil {
		return nil, errors.Wrap(err, "update scheduled order")
	}
	return so, nil
}

// Cancel moves a PENDING, ACTIVE or PAUSED schedule to CANCELLED. Cancelling
// a terminal schedule is a policy violation, not a crash.
func (s *Service) Cancel(ctx context.Context, id, userID int64) error {
	so, err := s.repo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return err
	}
	switch so.Status {
	case StatusPending, StatusActive, StatusPaused:
	default:
		return ErrCancelTerminal
	}
	return s.repo.UpdateStatus(ctx, id, StatusCancelled)
}

// Pause suspends a RECURRING schedule. Paused schedules are never selected
// by the due-order sweep and are never auto-resumed.
func (s *Service) Pause(ctx context.Context, id, userID int64) error {
	so, err := s.repo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return err
	}
	if so.Type != Recurring {
		return ErrPauseNotRecurring
	}
	switch so.Status {
	case StatusCompleted, StatusCancelled:
		// Terminal schedules stay terminal; pause+resume must not revive them.
		return ErrCancelTerminal
	}
	return s.repo.UpdateStatus(ctx, id, StatusPaused)
}

// Resume reactivates a PAUSED schedule.
func (s *Service) Resume(ctx context.Context, id, userID int64) error {
	so, err := s.repo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return err
	}
	if so.Status != StatusPaused {
		return ErrResumeNotPaused
	}
	return s.repo.UpdateStatus(ctx, id, StatusActive)
}

// Delete removes a PENDING or CANCELLED schedule along with its lines and
// execution history.
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	so, err := s.repo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return err
	}
	if so.Status != StatusPending && so.Status != StatusCancelled {
		return ErrDeleteForbidden
	}
	return s.repo.Delete(ctx, id)
}

// ExecutionHistory returns the audit trail of one of the user's schedules.
func (s *Service) ExecutionHistory(ctx context.Context, id, userID int64) ([]ExecutionRecord, error) {
	if _, err := s.repo.GetByIDAndUser(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.repo.ListExecutions(ctx, id)
}
