package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextDate(t *testing.T) {
	tests := []struct {
		name       string
		current    time.Time
		recurrence RecurrenceType
		want       time.Time
	}{
		{"daily", day(2024, time.January, 15), Daily, day(2024, time.January, 16)},
		{"daily month rollover", day(2024, time.January, 31), Daily, day(2024, time.February, 1)},
		{"weekly", day(2024, time.January, 15), Weekly, day(2024, time.January, 22)},
		{"weekly year rollover", day(2024, time.December, 30), Weekly, day(2025, time.January, 6)},
		{"monthly", day(2024, time.March, 10), Monthly, day(2024, time.April, 10)},
		// AddDate normalizes Jan 31 + 1 month past leap February.
		{"monthly end of month normalizes", day(2024, time.January, 31), Monthly, day(2024, time.March, 2)},
		{"monthly non-leap normalizes", day(2023, time.January, 31), Monthly, day(2023, time.March, 3)},
		{"unknown rule unchanged", day(2024, time.January, 15), RecurrenceType("YEARLY"), day(2024, time.January, 15)},
		{"empty rule unchanged", day(2024, time.January, 15), "", day(2024, time.January, 15)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextDate(tc.current, tc.recurrence))
		})
	}
}
