package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshlane/grocer-orders/internal/domain/carbon"
)

const (
	appendFootprintHistorySQL = `INSERT INTO carbon_footprint_history
		(user_id, order_id, carbon_footprint_kg, order_date)
		VALUES ($1, $2, $3, $4)`

	listFootprintHistorySQL = `SELECT id, user_id, order_id, carbon_footprint_kg, order_date
		FROM carbon_footprint_history
		WHERE user_id = $1
		ORDER BY order_date DESC, id DESC`
)

var _ carbon.HistoryRepository = (*CarbonHistoryRepository)(nil)

// CarbonHistoryRepository implements carbon.HistoryRepository backed by
// PostgreSQL.
type CarbonHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewCarbonHistoryRepository returns a CarbonHistoryRepository that uses the
// given pool.
func NewCarbonHistoryRepository(pool *pgxpool.Pool) *CarbonHistoryRepository {
	return &CarbonHistoryRepository{pool: pool}
}

// Append records one per-order footprint entry.
func (r *CarbonHistoryRepository) Append(ctx context.Context, entry carbon.HistoryEntry) error {
	_, err := r.pool.Exec(ctx, appendFootprintHistorySQL,
		entry.UserID, entry.OrderID, entry.FootprintKg, entry.OrderDate,
	)
	if err != nil {
		return fmt.Errorf("appending footprint history for user %d: %w", entry.UserID, err)
	}
	return nil
}

// ListByUser returns the user's footprint history, newest order date first.
func (r *CarbonHistoryRepository) ListByUser(ctx context.Context, userID int64) ([]carbon.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, listFootprintHistorySQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing footprint history for user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanHistoryEntry)
}

func scanHistoryEntry(row pgx.CollectableRow) (carbon.HistoryEntry, error) {
	var entry carbon.HistoryEntry
	err := row.Scan(&entry.ID, &entry.UserID, &entry.OrderID, &entry.FootprintKg, &entry.OrderDate)
	return entry, err
}
