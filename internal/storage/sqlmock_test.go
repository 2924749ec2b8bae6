package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance/internal/core"
)

func TestBulkCreateRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewWithDB(db)
	boom := errors.New("disk full")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM accounts").
		WithArgs("acc", "alice").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(sqlmock.AnyArg(), "acc", nil, "one", int64(-1000), "2024-01-01", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnError(boom)
	mock.ExpectRollback()

	_, err = repo.BulkCreateTransactions(context.Background(), "alice", []core.NewTransaction{
		{AccountID: "acc", Payee: "one", Amount: -1000, Date: core.NewDate(2024, 1, 1)},
		{AccountID: "acc", Payee: "two", Amount: -2000, Date: core.NewDate(2024, 1, 2)},
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkDeleteRollsBackOnDeleteFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewWithDB(db)
	boom := errors.New("locked")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT t.id FROM transactions").
		WithArgs("alice", "a", "b").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))
	mock.ExpectExec("DELETE FROM transactions").
		WithArgs("a", "b").
		WillReturnError(boom)
	mock.ExpectRollback()

	deleted, err := repo.BulkDeleteTransactions(context.Background(), "alice", []string{"a", "b"})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTransactionUnknownAccountDoesNotInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM accounts").
		WithArgs("acc", "mallory").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectRollback()

	_, err = NewWithDB(db).CreateTransaction(context.Background(), "mallory", core.NewTransaction{
		AccountID: "acc", Payee: "x", Amount: -1, Date: core.NewDate(2024, 1, 1),
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
