package core

// PeriodTotals holds the aggregated amounts of one date window.
type PeriodTotals struct {
	Income    Money `json:"income"`
	Expenses  Money `json:"expenses"`
	Remaining Money `json:"remaining"`
}

// CategoryAmount is the absolute expense total of one category.
type CategoryAmount struct {
	Name  string `json:"name"`
	Value Money  `json:"value"`
}

// DayTotals is the income and expense total of one calendar day.
type DayTotals struct {
	Date     Date  `json:"date"`
	Income   Money `json:"income"`
	Expenses Money `json:"expenses"`
}

// Add folds a single signed amount into the totals.
func (p *PeriodTotals) Add(amount Money) {
	if amount.IsExpense() {
		p.Expenses += amount
	} else {
		p.Income += amount
	}
	p.Remaining += amount
}
