package order

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrder(repo *mockOrderRepo, o Order) {
	repo.nextID++
	o.ID = repo.nextID
	if o.Number == "" {
		o.Number = NewOrderNumber()
	}
	repo.orders[o.ID] = &o
}

func TestDailySales_SplitsByChannel(t *testing.T) {
	repo := newMockOrderRepo()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	seedOrder(repo, Order{UserID: 1, Total: dec("20.00"), Status: StatusConfirmed, POS: true, PaymentMethod: PaymentCash, CreatedAt: day.Add(9 * time.Hour)})
	seedOrder(repo, Order{UserID: 1, Total: dec("30.00"), Status: StatusDelivered, POS: true, PaymentMethod: PaymentCreditCard, CreatedAt: day.Add(10 * time.Hour)})
	seedOrder(repo, Order{UserID: 2, Total: dec("15.00"), Status: StatusConfirmed, POS: true, PaymentMethod: PaymentQRCode, CreatedAt: day.Add(11 * time.Hour)})
	seedOrder(repo, Order{UserID: 2, Total: dec("40.00"), Status: StatusDelivered, PaymentMethod: PaymentOnline, CreatedAt: day.Add(12 * time.Hour)})
	// Excluded: wrong status and wrong day.
	seedOrder(repo, Order{UserID: 2, Total: dec("99.00"), Status: StatusPending, PaymentMethod: PaymentOnline, CreatedAt: day.Add(13 * time.Hour)})
	seedOrder(repo, Order{UserID: 2, Total: dec("99.00"), Status: StatusConfirmed, PaymentMethod: PaymentOnline, CreatedAt: day.AddDate(0, 0, 1)})

	svc := NewService(repo, &mockStock{}, &mockEvents{}, &mockFootprint{})

	report, err := svc.DailySales(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalOrders)
	assert.True(t, dec("105.00").Equal(report.TotalRevenue), "revenue %s", report.TotalRevenue)
	assert.True(t, dec("20.00").Equal(report.CashSales))
	assert.True(t, dec("30.00").Equal(report.CardSales))
	assert.True(t, dec("15.00").Equal(report.QRSales))
	assert.True(t, dec("40.00").Equal(report.OnlineSales))
}

func TestMonthlySales_BucketsByDayAscending(t *testing.T) {
	repo := newMockOrderRepo()

	seedOrder(repo, Order{Total: dec("10.00"), Status: StatusConfirmed, PaymentMethod: PaymentOnline,
		CreatedAt: time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC)})
	seedOrder(repo, Order{Total: dec("10.00"), Status: StatusConfirmed, PaymentMethod: PaymentOnline,
		CreatedAt: time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)})
	seedOrder(repo, Order{Total: dec("10.00"), Status: StatusConfirmed, PaymentMethod: PaymentOnline,
		CreatedAt: time.Date(2026, 3, 5, 19, 0, 0, 0, time.UTC)})

	svc := NewService(repo, &mockStock{}, &mockEvents{}, &mockFootprint{})

	reports, err := svc.MonthlySales(context.Background(), 2026, time.March)
	require.NoError(t, err)

	require.Len(t, reports, 2)
	assert.Equal(t, 5, reports[0].Date.Day())
	assert.Equal(t, 2, reports[0].TotalOrders)
	assert.Equal(t, 20, reports[1].Date.Day())
	assert.Equal(t, 1, reports[1].TotalOrders)
}

func TestFrequentlyOrdered_ThresholdAndSorting(t *testing.T) {
	repo := newMockOrderRepo()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	line := func(id int64, price string) Line {
		return Line{ProductID: id, ProductName: fmt.Sprintf("Product %d", id), Price: dec(price), Quantity: 1}
	}

	// Product 1 ordered three times, product 2 twice, product 3 once.
	seedOrder(repo, Order{UserID: 1, CreatedAt: base, Lines: []Line{line(1, "2.00"), line(2, "5.00")}})
	seedOrder(repo, Order{UserID: 1, CreatedAt: base.AddDate(0, 0, 1), Lines: []Line{line(1, "3.00"), line(2, "5.00")}})
	seedOrder(repo, Order{UserID: 1, CreatedAt: base.AddDate(0, 0, 2), Lines: []Line{line(1, "4.00"), line(3, "9.00")}})
	// POS orders are excluded from the analysis.
	seedOrder(repo, Order{UserID: 1, POS: true, CreatedAt: base, Lines: []Line{line(3, "9.00"), line(3, "9.00")}})

	svc := NewService(repo, &mockStock{}, &mockEvents{}, &mockFootprint{})

	products, err := svc.FrequentlyOrderedProducts(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, products, 2)
	assert.Equal(t, int64(1), products[0].ProductID)
	assert.Equal(t, 3, products[0].TimesOrdered)
	assert.True(t, dec("3.00").Equal(products[0].AveragePrice), "avg %s", products[0].AveragePrice)
	assert.Equal(t, base.AddDate(0, 0, 2), products[0].LastOrderedDate)
	assert.Equal(t, int64(2), products[1].ProductID)
	assert.False(t, products[1].AverageWeight.Valid)
}

func TestFrequentlyOrdered_TopTenCap(t *testing.T) {
	repo := newMockOrderRepo()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// Twelve products, each ordered twice.
	for round := range 2 {
		var lines []Line
		for id := int64(1); id <= 12; id++ {
			lines = append(lines, Line{ProductID: id, ProductName: "P", Price: dec("1.00"), Quantity: 1})
		}
		seedOrder(repo, Order{UserID: 1, CreatedAt: base.AddDate(0, 0, round), Lines: lines})
	}

	svc := NewService(repo, &mockStock{}, &mockEvents{}, &mockFootprint{})

	products, err := svc.FrequentlyOrderedProducts(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, products, 10)
	// Ties break by ascending product ID.
	assert.Equal(t, int64(1), products[0].ProductID)
	assert.Equal(t, int64(10), products[9].ProductID)
}

func TestFrequentlyOrdered_AverageWeight(t *testing.T) {
	repo := newMockOrderRepo()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	weightLine := func(w string) Line {
		return Line{ProductID: 1, ProductName: "Tomatoes", Price: dec("4.50"), Weight: dec(w)}
	}
	seedOrder(repo, Order{UserID: 1, CreatedAt: base, Lines: []Line{weightLine("1.0")}})
	seedOrder(repo, Order{UserID: 1, CreatedAt: base.AddDate(0, 0, 1), Lines: []Line{weightLine("2.0")}})

	svc := NewService(repo, &mockStock{}, &mockEvents{}, &mockFootprint{})

	products, err := svc.FrequentlyOrderedProducts(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, products, 1)
	require.True(t, products[0].AverageWeight.Valid)
	assert.True(t, dec("1.50").Equal(products[0].AverageWeight.Decimal))
}
