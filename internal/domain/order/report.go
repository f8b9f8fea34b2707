package order

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// SalesReport aggregates the revenue of one day, split by sales channel and
// register payment method. Only CONFIRMED and DELIVERED orders count.
type SalesReport struct {
	Date         time.Time
	TotalOrders  int
	TotalRevenue decimal.Decimal
	CashSales    decimal.Decimal
	CardSales    decimal.Decimal
	QRSales      decimal.Decimal
	OnlineSales  decimal.Decimal
}

// FrequentProduct describes a product the user keeps coming back to.
type FrequentProduct struct {
	ProductID       int64
	ProductName     string
	AveragePrice    decimal.Decimal
	TimesOrdered    int
	AverageQuantity int
	AverageWeight   decimal.NullDecimal
	LastOrderedDate time.Time
}

var reportStatuses = []Status{StatusConfirmed, StatusDelivered}

// DailySales builds the sales report for a single calendar day.
func (s *Service) DailySales(ctx context.Context, date time.Time) (SalesReport, error) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	orders, err := s.orders.ListByCreatedRange(ctx, start, end, reportStatuses)
	if err != nil {
		return SalesReport{}, errors.Wrap(err, "list orders for daily report")
	}
	return buildSalesReport(orders, start), nil
}

// MonthlySales builds per-day sales reports for a calendar month, sorted by
// date ascending. Days without sales are omitted.
func (s *Service) MonthlySales(ctx context.Context, year int, month time.Month) ([]SalesReport, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	orders, err := s.orders.ListByCreatedRange(ctx, start, end, reportStatuses)
	if err != nil {
		return nil, errors.Wrap(err, "list orders for monthly report")
	}

	byDay := make(map[time.Time][]Order)
	for _, o := range orders {
		day := time.Date(o.CreatedAt.Year(), o.CreatedAt.Month(), o.CreatedAt.Day(), 0, 0, 0, 0, time.UTC)
		byDay[day] = append(byDay[day], o)
	}

	reports := make([]SalesReport, 0, len(byDay))
	for day, dayOrders := range byDay {
		reports = append(reports, buildSalesReport(dayOrders, day))
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Date.Before(reports[j].Date) })
	return reports, nil
}

func buildSalesReport(orders []Order, date time.Time) SalesReport {
	r := SalesReport{
		Date:         date,
		TotalOrders:  len(orders),
		TotalRevenue: decimal.Zero,
		CashSales:    decimal.Zero,
		CardSales:    decimal.Zero,
		QRSales:      decimal.Zero,
		OnlineSales:  decimal.Zero,
	}
	for _, o := range orders {
		r.TotalRevenue = r.TotalRevenue.Add(o.Total)
		if !o.POS {
			r.OnlineSales = r.OnlineSales.Add(o.Total)
			continue
		}
		switch o.PaymentMethod {
		case PaymentCash:
			r.CashSales = r.CashSales.Add(o.Total)
		case PaymentCreditCard, PaymentDebitCard:
			r.CardSales = r.CardSales.Add(o.Total)
		case PaymentQRCode:
			r.QRSales = r.QRSales.Add(o.Total)
		}
	}
	return r
}

const (
	frequentMinOrders = 2
	frequentLimit     = 10
)

// FrequentlyOrderedProducts returns up to ten products the user has ordered
// at least twice across their online orders, most frequent first. Backs the
// "buy again" feature.
func (s *Service) FrequentlyOrderedProducts(ctx context.Context, userID int64) ([]FrequentProduct, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list user orders")
	}

	type lineWithDate struct {
		line Line
		date time.Time
	}
	byProduct := make(map[int64][]lineWithDate)
	for _, o := range orders {
		if o.POS {
			continue
		}
		for _, l := range o.Lines {
			byProduct[l.ProductID] = append(byProduct[l.ProductID], lineWithDate{line: l, date: o.CreatedAt})
		}
	}

	result := make([]FrequentProduct, 0, len(byProduct))
	for productID, entries := range byProduct {
		if len(entries) < frequentMinOrders {
			continue
		}

		n := decimal.NewFromInt(int64(len(entries)))
		totalPrice := decimal.Zero
		totalWeight := decimal.Zero
		weighted := 0
		totalQty := 0
		last := entries[0].date
		for _, e := range entries {
			totalPrice = totalPrice.Add(e.line.Price)
			totalQty += e.line.Quantity
			if e.line.Weight.IsPositive() {
				totalWeight = totalWeight.Add(e.line.Weight)
				weighted++
			}
			if e.date.After(last) {
				last = e.date
			}
		}

		fp := FrequentProduct{
			ProductID:       productID,
			ProductName:     entries[0].line.ProductName,
			AveragePrice:    totalPrice.Div(n).Round(2),
			TimesOrdered:    len(entries),
			AverageQuantity: totalQty / len(entries),
			LastOrderedDate: last,
		}
		if weighted > 0 {
			fp.AverageWeight = decimal.NullDecimal{
				Decimal: totalWeight.Div(decimal.NewFromInt(int64(weighted))).Round(2),
				Valid:   true,
			}
		}
		result = append(result, fp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TimesOrdered != result[j].TimesOrdered {
			return result[i].TimesOrdered > result[j].TimesOrdered
		}
		return result[i].ProductID < result[j].ProductID
	})
	if len(result) > frequentLimit {
		result = result[:frequentLimit]
	}
	return result, nil
}
