// Package summary computes dashboard figures for a date range: period totals
// compared with the preceding window of equal length, the top expense
// categories and a gap-filled daily series.
package summary

import (
	"errors"
	"math"
	"time"

	"finance/internal/core"
)

// DefaultWindowDays is how far back the range starts when no start date is
// given.
const DefaultWindowDays = 30

var ErrInvalidRange = errors.New("from date is after to date")

// Range is an inclusive calendar date range.
type Range struct {
	From core.Date `json:"from"`
	To   core.Date `json:"to"`
}

// Days is the number of calendar days in the range.
func (r Range) Days() int {
	return core.DaysBetween(r.From, r.To) + 1
}

// Previous returns the window of the same length ending the day before r.
func (r Range) Previous() Range {
	n := r.Days()
	return Range{From: r.From.AddDays(-n), To: r.To.AddDays(-n)}
}

// ResolveRange fills missing bounds: to defaults to the date of now and from
// to thirty days before to.
func ResolveRange(from, to *core.Date, now time.Time) (Range, error) {
	r := Range{To: core.DateOf(now)}
	if to != nil {
		r.To = *to
	}
	r.From = r.To.AddDays(-DefaultWindowDays)
	if from != nil {
		r.From = *from
	}
	if r.From.After(r.To.Time) {
		return Range{}, ErrInvalidRange
	}
	return r, nil
}

// PercentageChange returns the relative change from previous to current in
// percent. It is 0 when both are equal and 100 when previous is 0.
func PercentageChange(current, previous float64) float64 {
	if current == previous {
		return 0
	}
	if previous == 0 {
		return 100
	}
	change := (current - previous) / math.Abs(previous) * 100
	if math.IsNaN(change) || math.IsInf(change, 0) {
		return 0
	}
	return change
}
