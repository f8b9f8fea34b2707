package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshlane/grocer-orders/internal/domain/order"
	"github.com/freshlane/grocer-orders/internal/domain/schedule"
)

const (
	createScheduledOrderSQL = `INSERT INTO scheduled_orders
		(user_id, order_name, order_type, recurrence_type, scheduled_date, scheduled_time,
		 delivery_date, delivery_time, status, next_execution_date, end_date,
		 max_occurrences, current_occurrence, cart_snapshot, shipping_address, delivery_point, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at`

	scheduledOrderColumns = `id, user_id, order_name, order_type, COALESCE(recurrence_type, ''),
		scheduled_date, scheduled_time, delivery_date, delivery_time, status,
		next_execution_date, end_date, max_occurrences, current_occurrence,
		cart_snapshot, shipping_address, delivery_point, notes, created_at, updated_at`

	getScheduledOrderSQL = `SELECT ` + scheduledOrderColumns + ` FROM scheduled_orders
		WHERE id = $1 AND user_id = $2`

	listScheduledByUserSQL = `SELECT ` + scheduledOrderColumns + ` FROM scheduled_orders
		WHERE user_id = $1 ORDER BY scheduled_date DESC, id DESC`

	listScheduledByUserAndStatusSQL = `SELECT ` + scheduledOrderColumns + ` FROM scheduled_orders
		WHERE user_id = $1 AND status = $2 ORDER BY scheduled_date DESC, id DESC`

	listScheduledByUserAndDateRangeSQL = `SELECT ` + scheduledOrderColumns + ` FROM scheduled_orders
		WHERE user_id = $1 AND scheduled_date >= $2 AND scheduled_date <= $3
		ORDER BY scheduled_date, id`

	updateScheduledOrderSQL = `UPDATE scheduled_orders SET
		order_name = $2, order_type = $3, recurrence_type = $4,
		scheduled_date = $5, scheduled_time = $6, delivery_date = $7, delivery_time = $8,
		next_execution_date = $9, end_date = $10, max_occurrences = $11,
		cart_snapshot = $12, shipping_address = $13, delivery_point = $14, notes = $15,
		updated_at = now()
		WHERE id = $1`

	updateScheduledStatusSQL = `UPDATE scheduled_orders
		SET status = $2, updated_at = now() WHERE id = $1`

	deleteScheduledOrderSQL = `DELETE FROM scheduled_orders WHERE id = $1`

	listDueSQL = `SELECT ` + scheduledOrderColumns + ` FROM scheduled_orders
		WHERE status IN ('PENDING', 'ACTIVE')
		  AND next_execution_date <= $1
		  AND (claimed_at IS NULL OR claimed_at < $2)
		ORDER BY next_execution_date, id`

	claimScheduledOrderSQL = `UPDATE scheduled_orders SET claimed_at = $3
		WHERE id = $1
		  AND next_execution_date = $2
		  AND status IN ('PENDING', 'ACTIVE')
		  AND (claimed_at IS NULL OR claimed_at < $4)`

	releaseClaimSQL = `UPDATE scheduled_orders SET claimed_at = NULL WHERE id = $1`

	finalizeScheduledOrderSQL = `UPDATE scheduled_orders SET
		status = $3,
		current_occurrence = $4,
		next_execution_date = COALESCE($5, next_execution_date),
		claimed_at = NULL,
		updated_at = now()
		WHERE id = $1
		  AND next_execution_date = $2
		  AND status IN ('PENDING', 'ACTIVE')`

	appendExecutionSQL = `INSERT INTO order_execution_history
		(scheduled_order_id, executed_order_id, execution_date, status, error_message)
		VALUES ($1, $2, $3, $4, $5)`

	listExecutionsSQL = `SELECT id, scheduled_order_id, executed_order_id, execution_date, status, error_message
		FROM order_execution_history
		WHERE scheduled_order_id = $1
		ORDER BY execution_date DESC, id DESC`
)

var _ schedule.Repository = (*ScheduleRepository)(nil)

// ScheduleRepository implements schedule.Repository backed by PostgreSQL.
type ScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewScheduleRepository returns a ScheduleRepository that uses the given pool.
func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// Create persists a new scheduled order and fills in its generated ID and
// timestamps. The cart snapshot and shipping address are stored as JSONB.
func (r *ScheduleRepository) Create(ctx context.Context, so *schedule.ScheduledOrder) error {
	cartJSON, err := json.Marshal(so.Lines)
	if err != nil {
		return fmt.Errorf("marshaling cart snapshot: %w", err)
	}
	addressJSON, err := marshalNullable(so.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}

	err = r.pool.QueryRow(ctx, createScheduledOrderSQL,
		so.UserID, so.Name, so.Type, nullableRecurrence(so.Recurrence),
		so.ScheduledDate, so.ScheduledTime, so.DeliveryDate, so.DeliveryTime,
		so.Status, so.NextExecutionDate, so.EndDate,
		so.MaxOccurrences, so.CurrentOccurrence,
		cartJSON, addressJSON, so.DeliveryPoint, so.Notes,
	).Scan(&so.ID, &so.CreatedAt, &so.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating scheduled order: %w", err)
	}

	return nil
}

// GetByIDAndUser returns one scheduled order owned by the given user.
func (r *ScheduleRepository) GetByIDAndUser(ctx context.Context, id, userID int64) (*schedule.ScheduledOrder, error) {
	rows, err := r.pool.Query(ctx, getScheduledOrderSQL, id, userID)
	if err != nil {
		return nil, fmt.Errorf("getting scheduled order %d: %w", id, err)
	}

	so, err := pgx.CollectExactlyOneRow(rows, scanScheduledOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, schedule.ErrNotFound
		}
		return nil, fmt.Errorf("getting scheduled order %d: %w", id, err)
	}
	return &so, nil
}

// ListByUser returns all scheduled orders of one user, newest first.
func (r *ScheduleRepository) ListByUser(ctx context.Context, userID int64) ([]schedule.ScheduledOrder, error) {
	rows, err := r.pool.Query(ctx, listScheduledByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing scheduled orders for user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanScheduledOrder)
}

// ListByUserAndStatus returns the user's scheduled orders in one status.
func (r *ScheduleRepository) ListByUserAndStatus(ctx context.Context, userID int64, status schedule.Status) ([]schedule.ScheduledOrder, error) {
	rows, err := r.pool.Query(ctx, listScheduledByUserAndStatusSQL, userID, status)
	if err != nil {
		return nil, fmt.Errorf("listing scheduled orders for user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanScheduledOrder)
}

// ListByUserAndDateRange returns the user's scheduled orders with a
// scheduled date in [from, to], oldest first.
func (r *ScheduleRepository) ListByUserAndDateRange(ctx context.Context, userID int64, from, to time.Time) ([]schedule.ScheduledOrder, error) {
	rows, err := r.pool.Query(ctx, listScheduledByUserAndDateRangeSQL, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing scheduled orders for user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanScheduledOrder)
}

// Update replaces the template fields and cart snapshot of a scheduled order.
func (r *ScheduleRepository) Update(ctx context.Context, so *schedule.ScheduledOrder) error {
	cartJSON, err := json.Marshal(so.Lines)
	if err != nil {
		return fmt.Errorf("marshaling cart snapshot: %w", err)
	}
	addressJSON, err := marshalNullable(so.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}

	tag, err := r.pool.Exec(ctx, updateScheduledOrderSQL,
		so.ID, so.Name, so.Type, nullableRecurrence(so.Recurrence),
		so.ScheduledDate, so.ScheduledTime, so.DeliveryDate, so.DeliveryTime,
		so.NextExecutionDate, so.EndDate, so.MaxOccurrences,
		cartJSON, addressJSON, so.DeliveryPoint, so.Notes,
	)
	if err != nil {
		return fmt.Errorf("updating scheduled order %d: %w", so.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

// UpdateStatus sets the status of a scheduled order.
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, id int64, status schedule.Status) error {
	tag, err := r.pool.Exec(ctx, updateScheduledStatusSQL, id, status)
	if err != nil {
		return fmt.Errorf("updating scheduled order %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

// Delete removes a scheduled order. Its execution history rows are removed
// by the foreign key cascade.
func (r *ScheduleRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteScheduledOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting scheduled order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

// ListDue returns PENDING/ACTIVE schedules due on or before asOf that are
// not freshly claimed by another sweep.
func (r *ScheduleRepository) ListDue(ctx context.Context, asOf, staleBefore time.Time) ([]schedule.ScheduledOrder, error) {
	rows, err := r.pool.Query(ctx, listDueSQL, asOf, staleBefore)
	if err != nil {
		return nil, fmt.Errorf("listing due scheduled orders: %w", err)
	}
	return pgx.CollectRows(rows, scanScheduledOrder)
}

// Claim marks a due schedule as in-progress. The compare on
// next_execution_date makes the claim a no-op when another sweep already
// executed and advanced the row.
func (r *ScheduleRepository) Claim(ctx context.Context, id int64, expectedNext, now, staleBefore time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, claimScheduledOrderSQL, id, expectedNext, now, staleBefore)
	if err != nil {
		return false, fmt.Errorf("claiming scheduled order %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseClaim clears the in-progress marker without advancing the schedule.
func (r *ScheduleRepository) ReleaseClaim(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, releaseClaimSQL, id)
	if err != nil {
		return fmt.Errorf("releasing claim on scheduled order %d: %w", id, err)
	}
	return nil
}

// Finalize advances a claimed schedule after a successful execution and
// clears the claim. Returns false when the row moved underneath the sweep.
func (r *ScheduleRepository) Finalize(ctx context.Context, id int64, expectedNext time.Time, next *time.Time, status schedule.Status, occurrence int) (bool, error) {
	tag, err := r.pool.Exec(ctx, finalizeScheduledOrderSQL, id, expectedNext, status, occurrence, next)
	if err != nil {
		return false, fmt.Errorf("finalizing scheduled order %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// AppendExecution records one sweep attempt in the audit trail.
func (r *ScheduleRepository) AppendExecution(ctx context.Context, rec schedule.ExecutionRecord) error {
	_, err := r.pool.Exec(ctx, appendExecutionSQL,
		rec.ScheduledOrderID, rec.ExecutedOrderID, rec.ExecutedAt, rec.Status, rec.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("appending execution record for scheduled order %d: %w", rec.ScheduledOrderID, err)
	}
	return nil
}

// ListExecutions returns the audit trail of one scheduled order, newest first.
func (r *ScheduleRepository) ListExecutions(ctx context.Context, scheduledOrderID int64) ([]schedule.ExecutionRecord, error) {
	rows, err := r.pool.Query(ctx, listExecutionsSQL, scheduledOrderID)
	if err != nil {
		return nil, fmt.Errorf("listing executions for scheduled order %d: %w", scheduledOrderID, err)
	}
	return pgx.CollectRows(rows, scanExecutionRecord)
}

func scanScheduledOrder(row pgx.CollectableRow) (schedule.ScheduledOrder, error) {
	var (
		so          schedule.ScheduledOrder
		cartJSON    []byte
		addressJSON []byte
	)
	err := row.Scan(
		&so.ID, &so.UserID, &so.Name, &so.Type, &so.Recurrence,
		&so.ScheduledDate, &so.ScheduledTime, &so.DeliveryDate, &so.DeliveryTime, &so.Status,
		&so.NextExecutionDate, &so.EndDate, &so.MaxOccurrences, &so.CurrentOccurrence,
		&cartJSON, &addressJSON, &so.DeliveryPoint, &so.Notes, &so.CreatedAt, &so.UpdatedAt,
	)
	if err != nil {
		return schedule.ScheduledOrder{}, err
	}

	if err := json.Unmarshal(cartJSON, &so.Lines); err != nil {
		return schedule.ScheduledOrder{}, fmt.Errorf("unmarshaling cart snapshot: %w", err)
	}
	if len(addressJSON) > 0 {
		so.ShippingAddress = &order.ShippingAddress{}
		if err := json.Unmarshal(addressJSON, so.ShippingAddress); err != nil {
			return schedule.ScheduledOrder{}, fmt.Errorf("unmarshaling shipping address: %w", err)
		}
	}
	return so, nil
}

func scanExecutionRecord(row pgx.CollectableRow) (schedule.ExecutionRecord, error) {
	var rec schedule.ExecutionRecord
	err := row.Scan(
		&rec.ID, &rec.ScheduledOrderID, &rec.ExecutedOrderID,
		&rec.ExecutedAt, &rec.Status, &rec.ErrorMessage,
	)
	return rec, err
}

// nullableRecurrence maps the empty recurrence of ONE_TIME schedules to NULL.
func nullableRecurrence(r schedule.RecurrenceType) *schedule.RecurrenceType {
	if r == "" {
		return nil
	}
	return &r
}
