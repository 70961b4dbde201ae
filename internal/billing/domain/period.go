package billing

import (
	"math"
	"time"
)

// StatementPeriod normalizes a date to the first day of its month, the
// canonical form for a billing cycle.
func StatementPeriod(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PreviousStatementPeriod returns the first day of the month before d's.
func PreviousStatementPeriod(d time.Time) time.Time {
	return StatementPeriod(StatementPeriod(d).AddDate(0, 0, -1))
}

// NextStatementPeriod returns the first day of the month after d's.
func NextStatementPeriod(d time.Time) time.Time {
	return StatementPeriod(d).AddDate(0, 1, 0)
}

// BillingDate truncates a time to its calendar date in the billing location.
func BillingDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Round2 rounds a dollar amount to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundWhole(v float64) float64 {
	return math.Round(v)
}
