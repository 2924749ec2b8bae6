package summary

import "finance/internal/core"

// FillMissingDays returns one entry per day of r in ascending order. Days
// missing from active are zero-filled; entries outside r are ignored.
func FillMissingDays(active []core.DayTotals, r Range) []core.DayTotals {
	byDate := make(map[core.Date]core.DayTotals, len(active))
	for _, d := range active {
		day := core.DateOf(d.Date.Time)
		acc := byDate[day]
		acc.Income += d.Income
		acc.Expenses += d.Expenses
		byDate[day] = acc
	}

	n := r.Days()
	if n <= 0 {
		return []core.DayTotals{}
	}
	out := make([]core.DayTotals, 0, n)
	for day := r.From; !day.After(r.To.Time); day = day.AddDays(1) {
		totals := byDate[day]
		out = append(out, core.DayTotals{Date: day, Income: totals.Income, Expenses: totals.Expenses})
	}
	return out
}
