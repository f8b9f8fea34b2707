package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/freshlane/grocer-orders/internal/domain/carbon"
	"github.com/freshlane/grocer-orders/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(order_number, user_id, lines, subtotal, tax_amount, delivery_fee, total_amount,
		 status, payment_method, is_pos_order, shipping_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	orderColumns = `id, order_number, user_id, lines, subtotal, tax_amount, delivery_fee, total_amount,
		status, payment_method, is_pos_order, shipping_address,
		carbon_footprint_kg, delivery_distance_km, COALESCE(packaging_type, ''),
		created_at, updated_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1::boolean IS NULL OR is_pos_order = $1)
		ORDER BY created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	listOrdersByCreatedRangeSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE created_at >= $1 AND created_at < $2 AND status = ANY($3)
		ORDER BY created_at`

	setOrderFootprintSQL = `UPDATE orders
		SET carbon_footprint_kg = $2, delivery_distance_km = $3, packaging_type = $4, updated_at = now()
		WHERE id = $1`
)

var (
	_ order.Repository           = (*OrderRepository)(nil)
	_ carbon.OrderFootprintStore = (*OrderRepository)(nil)
)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order and fills in its generated ID and timestamps.
// Order lines and the shipping address are serialized to JSON for storage in
// JSONB columns.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}
	addressJSON, err := marshalNullable(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}

	err = r.pool.QueryRow(ctx, createOrderSQL,
		o.Number, o.UserID, linesJSON, o.Subtotal, o.Tax, o.DeliveryFee, o.Total,
		o.Status, o.PaymentMethod, o.POS, addressJSON,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.Number, err)
	}

	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	return &o, nil
}

// GetByNumber returns a single order by its public order number.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByNumberSQL, number)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}
	return &o, nil
}

// ListByUser returns all orders of one user, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// List returns all orders, optionally filtered by the point-of-sale flag.
func (r *OrderRepository) List(ctx context.Context, posFilter *bool) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, posFilter)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus sets the lifecycle status of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, status)
	if err != nil {
		return fmt.Errorf("updating order %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// ListByCreatedRange returns orders created in [from, to) whose status is one
// of the given statuses, oldest first.
func (r *OrderRepository) ListByCreatedRange(ctx context.Context, from, to time.Time, statuses []order.Status) ([]order.Order, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	rows, err := r.pool.Query(ctx, listOrdersByCreatedRangeSQL, from, to, names)
	if err != nil {
		return nil, fmt.Errorf("listing orders by date range: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// SetOrderFootprint stores the carbon estimate columns on an existing order.
// Implements carbon.OrderFootprintStore.
func (r *OrderRepository) SetOrderFootprint(ctx context.Context, orderID int64, kg, distanceKm decimal.Decimal, packaging carbon.PackagingType) error {
	tag, err := r.pool.Exec(ctx, setOrderFootprintSQL, orderID, kg, distanceKm, packaging)
	if err != nil {
		return fmt.Errorf("setting footprint on order %d: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o           order.Order
		linesJSON   []byte
		addressJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &linesJSON,
		&o.Subtotal, &o.Tax, &o.DeliveryFee, &o.Total,
		&o.Status, &o.PaymentMethod, &o.POS, &addressJSON,
		&o.CarbonFootprintKg, &o.DeliveryDistanceKm, &o.PackagingType,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}

	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling order lines: %w", err)
	}
	if len(addressJSON) > 0 {
		o.ShippingAddress = &order.ShippingAddress{}
		if err := json.Unmarshal(addressJSON, o.ShippingAddress); err != nil {
			return order.Order{}, fmt.Errorf("unmarshaling shipping address: %w", err)
		}
	}
	return o, nil
}

// marshalNullable serializes v to JSON, mapping a nil pointer to SQL NULL.
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
