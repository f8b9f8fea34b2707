// Command seed-db populates a development database with demo orders and
// scheduled orders.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/freshlane/grocer-orders/internal/domain/carbon"
	"github.com/freshlane/grocer-orders/internal/domain/order"
	"github.com/freshlane/grocer-orders/internal/domain/schedule"
	"github.com/freshlane/grocer-orders/internal/repository"
)

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	orders := repository.NewOrderRepository(pool)
	schedules := repository.NewScheduleRepository(pool)
	history := repository.NewCarbonHistoryRepository(pool)
	estimator := carbon.NewEstimator(carbon.DefaultFactors(), carbon.DefaultCategoryRules())
	footprints := carbon.NewService(estimator, history, orders)

	if err := seedOrders(ctx, orders, footprints); err != nil {
		return errors.Wrap(err, "seed orders")
	}
	if err := seedScheduledOrders(ctx, schedules); err != nil {
		return errors.Wrap(err, "seed scheduled orders")
	}

	return nil
}

func seedOrders(ctx context.Context, orders *repository.OrderRepository, footprints *carbon.Service) error {
	demo := []struct {
		userID  int64
		payment order.PaymentMethod
		pos     bool
		lines   []order.Line
	}{
		{
			userID:  1,
			payment: order.PaymentOnline,
			lines: []order.Line{
				{ProductID: 101, ProductName: "Chicken Breast", Price: dec("12.99"), Quantity: 2},
				{ProductID: 102, ProductName: "Tomatoes", Price: dec("4.50"), Weight: dec("1.2")},
			},
		},
		{
			userID:  1,
			payment: order.PaymentCash,
			pos:     true,
			lines: []order.Line{
				{ProductID: 103, ProductName: "Whole Milk", Price: dec("3.20"), Quantity: 1},
				{ProductID: 104, ProductName: "Orange Juice", Price: dec("2.80"), Quantity: 3},
			},
		},
		{
			userID:  2,
			payment: order.PaymentCreditCard,
			pos:     true,
			lines: []order.Line{
				{ProductID: 105, ProductName: "Frozen Pizza", Price: dec("8.40"), Quantity: 1},
			},
		},
	}

	for _, d := range demo {
		pricingLines := make([]order.PricingLine, len(d.lines))
		for i, line := range d.lines {
			pricingLines[i] = order.PricingLine{Price: line.Price, Quantity: line.Quantity, Weight: line.Weight}
		}
		pricing := order.ComputePricing(pricingLines, d.pos)

		o := &order.Order{
			Number:        order.NewOrderNumber(),
			UserID:        d.userID,
			Subtotal:      pricing.Subtotal,
			Tax:           pricing.Tax,
			DeliveryFee:   pricing.DeliveryFee,
			Total:         pricing.Total,
			Status:        order.StatusPending,
			PaymentMethod: d.payment,
			POS:           d.pos,
		}
		if d.pos {
			o.Status = order.StatusConfirmed
		} else {
			o.ShippingAddress = &order.ShippingAddress{
				Street:  "12 Market Lane",
				City:    "Springfield",
				State:   "OR",
				ZipCode: "97403",
				Country: "US",
			}
		}

		for _, line := range d.lines {
			line.Subtotal = order.LineSubtotal(line.Price, line.Quantity, line.Weight)
			o.Lines = append(o.Lines, line)
		}

		if err := orders.Create(ctx, o); err != nil {
			return err
		}
		if err := footprints.RecordOrderFootprint(ctx, o); err != nil {
			return err
		}

		slog.Info("seeded order",
			slog.String("number", o.Number),
			slog.Int64("user", o.UserID),
			slog.String("total", o.Total.String()),
		)
	}

	return nil
}

func seedScheduledOrders(ctx context.Context, schedules *repository.ScheduleRepository) error {
	nextWeek := time.Now().UTC().AddDate(0, 0, 7).Truncate(24 * time.Hour)

	so := &schedule.ScheduledOrder{
		UserID:            1,
		Name:              "Weekly staples",
		Type:              schedule.Recurring,
		Recurrence:        schedule.Weekly,
		ScheduledDate:     nextWeek,
		ScheduledTime:     "09:00",
		DeliveryDate:      nextWeek,
		DeliveryTime:      "18:00",
		Status:            schedule.StatusPending,
		NextExecutionDate: schedule.NextDate(nextWeek, schedule.Weekly),
		Lines: []schedule.Line{
			{ProductID: 103, ProductName: "Whole Milk", Price: dec("3.20"), Quantity: 2, Subtotal: dec("6.40")},
			{ProductID: 106, ProductName: "Sourdough Bread", Price: dec("5.10"), Quantity: 1, Subtotal: dec("5.10")},
		},
		ShippingAddress: &order.ShippingAddress{
			Street:  "12 Market Lane",
			City:    "Springfield",
			State:   "OR",
			ZipCode: "97403",
			Country: "US",
		},
	}

	if err := schedules.Create(ctx, so); err != nil {
		return err
	}

	slog.Info("seeded scheduled order",
		slog.Int64("id", so.ID),
		slog.String("name", so.Name),
	)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
