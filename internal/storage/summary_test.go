package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance/internal/core"
	"finance/internal/summary"
)

func TestSummaryQueries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	acc, food := seedLedger(t, repo)
	rent, err := repo.CreateCategory(ctx, "alice", "Rent")
	require.NoError(t, err)
	card, err := repo.CreateAccount(ctx, "alice", "Card")
	require.NoError(t, err)
	bobAcc, err := repo.CreateAccount(ctx, "bob", "Bob")
	require.NoError(t, err)

	_, err = repo.BulkCreateTransactions(ctx, "alice", []core.NewTransaction{
		{AccountID: acc.ID, Payee: "salary", Amount: 5000, Date: core.NewDate(2024, 1, 1)},
		{AccountID: acc.ID, CategoryID: &food.ID, Payee: "grocer", Amount: -300, Date: core.NewDate(2024, 1, 1)},
		{AccountID: acc.ID, CategoryID: &food.ID, Payee: "cafe", Amount: -200, Date: core.NewDate(2024, 1, 4)},
		{AccountID: card.ID, CategoryID: &rent.ID, Payee: "landlord", Amount: -1000, Date: core.NewDate(2024, 1, 4)},
		{AccountID: card.ID, Payee: "misc", Amount: -50, Date: core.NewDate(2024, 1, 5)},
		{AccountID: acc.ID, Payee: "outside", Amount: -999, Date: core.NewDate(2024, 1, 6)},
	})
	require.NoError(t, err)
	_, err = repo.CreateTransaction(ctx, "bob", core.NewTransaction{
		AccountID: bobAcc.ID, Payee: "bob", Amount: 77, Date: core.NewDate(2024, 1, 2),
	})
	require.NoError(t, err)

	scope := summary.Scope{
		UserID: "alice",
		Range:  summary.Range{From: core.NewDate(2024, 1, 1), To: core.NewDate(2024, 1, 5)},
	}

	totals, err := repo.PeriodTotals(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, core.PeriodTotals{Income: 5000, Expenses: -1550, Remaining: 3450}, totals)

	cats, err := repo.CategoryTotals(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryAmount{{Name: "Rent", Value: 1000}, {Name: "Food", Value: 500}}, cats)

	days, err := repo.DailyTotals(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, []core.DayTotals{
		{Date: core.NewDate(2024, 1, 1), Income: 5000, Expenses: -300},
		{Date: core.NewDate(2024, 1, 4), Income: 0, Expenses: -1200},
		{Date: core.NewDate(2024, 1, 5), Income: 0, Expenses: -50},
	}, days)

	scope.AccountID = card.ID
	totals, err = repo.PeriodTotals(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, core.PeriodTotals{Income: 0, Expenses: -1050, Remaining: -1050}, totals)

	empty := summary.Scope{UserID: "carol", Range: scope.Range}
	totals, err = repo.PeriodTotals(ctx, empty)
	require.NoError(t, err)
	assert.Zero(t, totals)
}

func TestSummaryServiceOverSQLite(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	acc, food := seedLedger(t, repo)

	_, err := repo.BulkCreateTransactions(ctx, "alice", []core.NewTransaction{
		{AccountID: acc.ID, CategoryID: &food.ID, Payee: "prev", Amount: -100, Date: core.NewDate(2023, 12, 30)},
		{AccountID: acc.ID, CategoryID: &food.ID, Payee: "cur", Amount: -200, Date: core.NewDate(2024, 1, 3)},
	})
	require.NoError(t, err)

	from, to := core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 5)
	got, err := summary.NewService(repo).Summarize(ctx, "alice", summary.Query{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, core.Money(-200), got.ExpensesAmount)
	assert.InDelta(t, -100, got.ExpensesChange, 1e-9)
	assert.Len(t, got.Days, 5)
	assert.Equal(t, []core.CategoryAmount{{Name: "Food", Value: 200}}, got.Categories)
}
