package carbon

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// MonthlyFootprint is a YYYY-MM bucket of a user's footprint history.
type MonthlyFootprint struct {
	Month      string
	Kg         decimal.Decimal
	OrderCount int
}

// Summary rolls up a user's footprint history.
type Summary struct {
	UserID          int64
	TotalOrders     int
	TotalKg         decimal.Decimal
	AveragePerOrder decimal.Decimal
	MinKg           decimal.Decimal
	MaxKg           decimal.Decimal
	FirstOrderDate  time.Time
	LastOrderDate   time.Time
	CarbonSavedKg   decimal.Decimal
	EcoBadge        string
	Monthly         []MonthlyFootprint
}

// Eco badge labels, best tier first.
const (
	BadgeEcoWarrior       = "Eco Warrior"
	BadgeGreenShopper     = "Green Shopper"
	BadgeClimateConscious = "Climate Conscious"
	BadgeRegularShopper   = "Regular Shopper"
)

// assumedAverageFootprintPerOrder is the baseline used for the carbon-saved
// figure: saved = baseline x orders - actual total.
var assumedAverageFootprintPerOrder = decimal.RequireFromString("15.0")

const trailingMonths = 12

// UserSummary aggregates the user's footprint history. An empty history
// yields a zeroed summary with no badge thresholds met.
func (s *Service) UserSummary(ctx context.Context, userID int64) (Summary, error) {
	history, err := s.history.ListByUser(ctx, userID)
	if err != nil {
		return Summary{}, errors.Wrap(err, "list footprint history")
	}

	if len(history) == 0 {
		return Summary{
			UserID:          userID,
			TotalKg:         decimal.Zero,
			AveragePerOrder: decimal.Zero,
			MinKg:           decimal.Zero,
			MaxKg:           decimal.Zero,
			CarbonSavedKg:   decimal.Zero,
			EcoBadge:        BadgeRegularShopper,
		}, nil
	}

	total := decimal.Zero
	min := history[0].FootprintKg
	max := history[0].FootprintKg
	first := history[0].OrderDate
	last := history[0].OrderDate

	type monthAcc struct {
		kg    decimal.Decimal
		count int
	}
	byMonth := make(map[string]*monthAcc)

	for _, h := range history {
		total = total.Add(h.FootprintKg)
		if h.FootprintKg.LessThan(min) {
			min = h.FootprintKg
		}
		if h.FootprintKg.GreaterThan(max) {
			max = h.FootprintKg
		}
		if h.OrderDate.Before(first) {
			first = h.OrderDate
		}
		if h.OrderDate.After(last) {
			last = h.OrderDate
		}

		month := h.OrderDate.Format("2006-01")
		acc, ok := byMonth[month]
		if !ok {
			acc = &monthAcc{kg: decimal.Zero}
			byMonth[month] = acc
		}
		acc.kg = acc.kg.Add(h.FootprintKg)
		acc.count++
	}

	n := decimal.NewFromInt(int64(len(history)))
	avg := total.DivRound(n, 4)
	saved := assumedAverageFootprintPerOrder.Mul(n).Sub(total)

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	// Most recent month first, capped at the trailing 12.
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	if len(months) > trailingMonths {
		months = months[:trailingMonths]
	}
	monthly := make([]MonthlyFootprint, len(months))
	for i, m := range months {
		monthly[i] = MonthlyFootprint{
			Month:      m,
			Kg:         byMonth[m].kg.Round(4),
			OrderCount: byMonth[m].count,
		}
	}

	return Summary{
		UserID:          userID,
		TotalOrders:     len(history),
		TotalKg:         total.Round(4),
		AveragePerOrder: avg,
		MinKg:           min,
		MaxKg:           max,
		FirstOrderDate:  first,
		LastOrderDate:   last,
		CarbonSavedKg:   saved.Round(4),
		EcoBadge:        determineBadge(avg, saved),
		Monthly:         monthly,
	}, nil
}

func determineBadge(avg, saved decimal.Decimal) string {
	switch {
	case avg.LessThan(decimal.RequireFromString("5.0")) && saved.GreaterThan(decimal.RequireFromString("50.0")):
		return BadgeEcoWarrior
	case avg.LessThan(decimal.RequireFromString("10.0")) && saved.GreaterThan(decimal.RequireFromString("20.0")):
		return BadgeGreenShopper
	case avg.LessThan(decimal.RequireFromString("15.0")):
		return BadgeClimateConscious
	default:
		return BadgeRegularShopper
	}
}
