package schedule

import "time"

// NextDate computes the execution date following current for the given
// recurrence rule. MONTHLY uses AddDate month arithmetic, so a day-of-month
// past the end of the next month normalizes forward (Jan 31 -> Mar 2/3) per
// the standard library's calendar semantics. Unknown rules return current
// unchanged.
func NextDate(current time.Time, recurrence RecurrenceType) time.Time {
	switch recurrence {
	case Daily:
		return current.AddDate(0, 0, 1)
	case Weekly:
		return current.AddDate(0, 0, 7)
	case Monthly:
		return current.AddDate(0, 1, 0)
	default:
		return current
	}
}
