package carbon

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshlane/grocer-orders/internal/domain/order"
)

type mockHistoryRepo struct {
	entries []HistoryEntry
	err     error
}

func (m *mockHistoryRepo) Append(_ context.Context, entry HistoryEntry) error {
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockHistoryRepo) ListByUser(_ context.Context, userID int64) ([]HistoryEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []HistoryEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockFootprintStore struct {
	calls int
	err   error
}

func (m *mockFootprintStore) SetOrderFootprint(context.Context, int64, decimal.Decimal, decimal.Decimal, PackagingType) error {
	m.calls++
	return m.err
}

func newSummaryService(entries ...HistoryEntry) *Service {
	return NewService(newTestEstimator(), &mockHistoryRepo{entries: entries}, &mockFootprintStore{})
}

func entry(kg string, date time.Time) HistoryEntry {
	return HistoryEntry{UserID: 1, FootprintKg: decimal.RequireFromString(kg), OrderDate: date}
}

func testOrderWithChicken() *order.Order {
	return &order.Order{
		ID:     42,
		UserID: 7,
		Lines: []order.Line{
			{ProductID: 1, ProductName: "Chicken Breast", Price: dec("12.99"), Quantity: 2},
		},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUserSummary_EmptyHistory(t *testing.T) {
	svc := newSummaryService()

	s, err := svc.UserSummary(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), s.UserID)
	assert.Zero(t, s.TotalOrders)
	assert.True(t, s.TotalKg.IsZero())
	assert.True(t, s.CarbonSavedKg.IsZero())
	assert.Equal(t, BadgeRegularShopper, s.EcoBadge)
	assert.True(t, s.FirstOrderDate.IsZero())
	assert.Empty(t, s.Monthly)
}

func TestUserSummary_Aggregates(t *testing.T) {
	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	svc := newSummaryService(
		entry("10.0", jan),
		entry("2.0", feb),
		entry("6.0", feb.AddDate(0, 0, 3)),
	)

	s, err := svc.UserSummary(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 3, s.TotalOrders)
	assert.True(t, dec("18.0").Equal(s.TotalKg), "total %s", s.TotalKg)
	assert.True(t, dec("6.0").Equal(s.AveragePerOrder), "avg %s", s.AveragePerOrder)
	assert.True(t, dec("2.0").Equal(s.MinKg))
	assert.True(t, dec("10.0").Equal(s.MaxKg))
	assert.Equal(t, jan, s.FirstOrderDate)
	assert.Equal(t, feb.AddDate(0, 0, 3), s.LastOrderDate)
	// saved = 15.0 x 3 - 18.0 = 27.0
	assert.True(t, dec("27.0").Equal(s.CarbonSavedKg), "saved %s", s.CarbonSavedKg)

	require.Len(t, s.Monthly, 2)
	assert.Equal(t, "2026-02", s.Monthly[0].Month)
	assert.Equal(t, 2, s.Monthly[0].OrderCount)
	assert.True(t, dec("8.0").Equal(s.Monthly[0].Kg))
	assert.Equal(t, "2026-01", s.Monthly[1].Month)
}

func TestUserSummary_MonthlyCappedAtTwelve(t *testing.T) {
	var entries []HistoryEntry
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for i := range 15 {
		entries = append(entries, entry("1.0", base.AddDate(0, i, 0)))
	}

	svc := newSummaryService(entries...)

	s, err := svc.UserSummary(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, s.Monthly, 12)
	assert.Equal(t, "2025-03", s.Monthly[0].Month)
	assert.Equal(t, "2024-04", s.Monthly[11].Month)
}

func TestDetermineBadge_Tiers(t *testing.T) {
	tests := []struct {
		avg   string
		saved string
		want  string
	}{
		{"4.0", "60.0", BadgeEcoWarrior},
		{"4.0", "30.0", BadgeGreenShopper}, // saved too low for Eco Warrior
		{"9.0", "25.0", BadgeGreenShopper},
		{"9.0", "10.0", BadgeClimateConscious}, // saved too low for Green Shopper
		{"14.9", "100.0", BadgeClimateConscious},
		{"15.0", "0.0", BadgeRegularShopper},
		{"20.0", "-10.0", BadgeRegularShopper},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("avg=%s saved=%s", tc.avg, tc.saved), func(t *testing.T) {
			got := determineBadge(dec(tc.avg), dec(tc.saved))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRecordOrderFootprint_PersistsAndMutates(t *testing.T) {
	history := &mockHistoryRepo{}
	store := &mockFootprintStore{}
	svc := NewService(newTestEstimator(), history, store)

	o := testOrderWithChicken()

	err := svc.RecordOrderFootprint(context.Background(), o)
	require.NoError(t, err)

	assert.Equal(t, 1, store.calls)
	require.Len(t, history.entries, 1)
	assert.Equal(t, o.UserID, history.entries[0].UserID)
	require.True(t, o.CarbonFootprintKg.Valid)
	assert.True(t, dec("28.5").Equal(o.CarbonFootprintKg.Decimal), "kg %s", o.CarbonFootprintKg.Decimal)
	assert.Equal(t, string(PackagingStandard), o.PackagingType)
}

func TestRecordOrderFootprint_StoreErrorPropagates(t *testing.T) {
	store := &mockFootprintStore{err: fmt.Errorf("db down")}
	svc := NewService(newTestEstimator(), &mockHistoryRepo{}, store)

	err := svc.RecordOrderFootprint(context.Background(), testOrderWithChicken())
	require.Error(t, err)
}
