package schedule

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/freshlane/grocer-orders/internal/domain/order"
)

// OrderCreator materializes a scheduled order into a real order. Implemented
// by the order service, so interactive and scheduled order creation share
// one code path and one failure policy.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error)
}

// SweeperConfig tunes the sweep loop.
type SweeperConfig struct {
	// Interval between sweeps.
	Interval time.Duration
	// ClaimTTL is how long a claim blocks other sweeps; a claim older than
	// this is considered abandoned by a crashed sweep and may be retaken.
	ClaimTTL time.Duration
	// Parallelism bounds concurrent materializations within one sweep.
	Parallelism int
}

// Sweeper periodically finds due scheduled orders, materializes them, records
// the outcome and advances or terminates the schedule.
type Sweeper struct {
	repo   Repository
	orders OrderCreator
	cfg    SweeperConfig
	now    func() time.Time
}

// NewSweeper creates a Sweeper. Zero config fields fall back to one-minute
// interval, five-minute claim TTL and sequential processing.
func NewSweeper(repo Repository, orders OrderCreator, cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 5 * time.Minute
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	return &Sweeper{repo: repo, orders: orders, cfg: cfg, now: time.Now}
}

// Run sweeps on the configured interval until ctx is cancelled. An in-flight
// materialization always finishes before the stop signal is honored: the
// sweep work runs on a detached context, cancellation only stops the loop.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	lg := zctx.From(ctx)
	lg.Info("Scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("parallelism", s.cfg.Parallelism))

	for {
		select {
		case <-ctx.Done():
			lg.Info("Scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(context.WithoutCancel(ctx)); err != nil {
				lg.Error("Sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep runs one pass over all due scheduled orders. Individual execution
// failures are recorded in the audit trail and retried on the next sweep;
// only the due-query error aborts a pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.now()
	due, err := s.repo.ListDue(ctx, now, now.Add(-s.cfg.ClaimTTL))
	if err != nil {
		return errors.Wrap(err, "list due scheduled orders")
	}
	if len(due) == 0 {
		return nil
	}

	zctx.From(ctx).Info("Sweeping due scheduled orders", zap.Int("count", len(due)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for _, so := range due {
		g.Go(func() error {
			s.executeOne(gctx, &so)
			return nil
		})
	}
	return g.Wait()
}

// executeOne claims, materializes and advances a single due schedule.
func (s *Sweeper) executeOne(ctx context.Context, so *ScheduledOrder) {
	lg := zctx.From(ctx).With(
		zap.Int64("scheduled_order", so.ID),
		zap.Time("due", so.NextExecutionDate))

	now := s.now()
	claimed, err := s.repo.Claim(ctx, so.ID, so.NextExecutionDate, now, now.Add(-s.cfg.ClaimTTL))
	if err != nil {
		lg.Error("Claim failed", zap.Error(err))
		return
	}
	if !claimed {
		// Another sweep owns this due date, or the user mutated the
		// schedule after it was listed.
		s.appendExecution(ctx, ExecutionRecord{
			ScheduledOrderID: so.ID,
			ExecutedAt:       now,
			Status:           ExecutionSkipped,
			ErrorMessage:     "claimed by a concurrent sweep or mutated since listing",
		})
		return
	}

	created, err := s.orders.CreateOrder(ctx, s.materializeRequest(so))
	if err != nil {
		lg.Warn("Materialization failed, will retry next sweep", zap.Error(err))
		s.appendExecution(ctx, ExecutionRecord{
			ScheduledOrderID: so.ID,
			ExecutedAt:       s.now(),
			Status:           ExecutionFailed,
			ErrorMessage:     err.Error(),
		})
		if relErr := s.repo.ReleaseClaim(ctx, so.ID); relErr != nil {
			lg.Error("Claim release failed", zap.Error(relErr))
		}
		return
	}

	s.appendExecution(ctx, ExecutionRecord{
		ScheduledOrderID: so.ID,
		ExecutedOrderID:  &created.ID,
		ExecutedAt:       s.now(),
		Status:           ExecutionSuccess,
	})

	occurrence := so.CurrentOccurrence + 1
	next, status := s.advance(so, occurrence)

	ok, err := s.repo.Finalize(ctx, so.ID, so.NextExecutionDate, next, status, occurrence)
	if err != nil {
		lg.Error("Finalize failed", zap.Error(err))
		return
	}
	if !ok {
		lg.Warn("Schedule changed during execution, advance skipped")
		return
	}
	lg.Info("Scheduled order executed",
		zap.String("order", created.Number),
		zap.Int("occurrence", occurrence),
		zap.String("status", string(status)))
}

// advance decides where the schedule goes after a successful execution:
// one-time schedules complete; recurring schedules either advance to the
// next date or complete when the end date or occurrence cap is reached.
func (s *Sweeper) advance(so *ScheduledOrder, occurrence int) (*time.Time, Status) {
	if so.Type == OneTime {
		return nil, StatusCompleted
	}

	next := NextDate(so.NextExecutionDate, so.Recurrence)
	if so.EndDate != nil && next.After(*so.EndDate) {
		return nil, StatusCompleted
	}
	if so.MaxOccurrences > 0 && occurrence >= so.MaxOccurrences {
		return nil, StatusCompleted
	}
	return &next, StatusActive
}

// materializeRequest builds an order request from the stored snapshot.
func (s *Sweeper) materializeRequest(so *ScheduledOrder) order.CreateOrderRequest {
	lines := make([]order.LineInput, len(so.Lines))
	for i, l := range so.Lines {
		lines[i] = order.LineInput{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Price:       l.Price,
			Quantity:    l.Quantity,
			Weight:      l.Weight,
		}
	}
	return order.CreateOrderRequest{
		UserID:          so.UserID,
		Lines:           lines,
		PaymentMethod:   order.PaymentOnline,
		ShippingAddress: so.ShippingAddress,
	}
}

func (s *Sweeper) appendExecution(ctx context.Context, rec ExecutionRecord) {
	if err := s.repo.AppendExecution(ctx, rec); err != nil {
		zctx.From(ctx).Error("Execution history append failed",
			zap.Int64("scheduled_order", rec.ScheduledOrderID), zap.Error(err))
	}
}
