package storage

import (
	"context"
	"fmt"

	"finance/internal/core"
	"finance/internal/summary"
)

// scopeFilter is the WHERE clause shared by the summary queries; it expects
// the arguments produced by scopeArgs.
const scopeFilter = `
	WHERE a.user_id = ?
	  AND t.date >= ? AND t.date <= ?
	  AND (? = '' OR t.account_id = ?)`

func scopeArgs(s summary.Scope) []any {
	return []any{s.UserID, s.Range.From.String(), s.Range.To.String(), s.AccountID, s.AccountID}
}

// PeriodTotals sums income, expenses and the net amount of the scope.
func (r *SQLiteRepository) PeriodTotals(ctx context.Context, s summary.Scope) (core.PeriodTotals, error) {
	var income, expenses, remaining int64
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN t.amount >= 0 THEN t.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN t.amount < 0 THEN t.amount ELSE 0 END), 0),
			COALESCE(SUM(t.amount), 0)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id`+scopeFilter,
		scopeArgs(s)...).Scan(&income, &expenses, &remaining)
	if err != nil {
		return core.PeriodTotals{}, fmt.Errorf("period totals: %w", err)
	}
	return core.PeriodTotals{
		Income:    core.Money(income),
		Expenses:  core.Money(expenses),
		Remaining: core.Money(remaining),
	}, nil
}

// CategoryTotals returns absolute expense totals per category name, largest
// first. Uncategorized transactions do not appear.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, s summary.Scope) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.name, SUM(ABS(t.amount)) AS value
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		JOIN categories c ON c.id = t.category_id`+scopeFilter+`
		  AND t.amount < 0
		GROUP BY c.name
		ORDER BY value DESC, c.name`,
		scopeArgs(s)...)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryAmount{}
	for rows.Next() {
		var (
			name  string
			value int64
		)
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, core.CategoryAmount{Name: name, Value: core.Money(value)})
	}
	return out, rows.Err()
}

// DailyTotals returns income and expenses for each day that has
// transactions, in ascending date order.
func (r *SQLiteRepository) DailyTotals(ctx context.Context, s summary.Scope) ([]core.DayTotals, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			t.date,
			COALESCE(SUM(CASE WHEN t.amount >= 0 THEN t.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN t.amount < 0 THEN t.amount ELSE 0 END), 0)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id`+scopeFilter+`
		GROUP BY t.date
		ORDER BY t.date`,
		scopeArgs(s)...)
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	defer rows.Close()

	out := []core.DayTotals{}
	for rows.Next() {
		var (
			day              string
			income, expenses int64
		)
		if err := rows.Scan(&day, &income, &expenses); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		d, err := core.ParseDate(day)
		if err != nil {
			return nil, fmt.Errorf("daily totals: %w", err)
		}
		out = append(out, core.DayTotals{Date: d, Income: core.Money(income), Expenses: core.Money(expenses)})
	}
	return out, rows.Err()
}

var _ summary.Reader = (*SQLiteRepository)(nil)
