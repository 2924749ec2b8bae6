package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"finance/internal/amqp"
	"finance/internal/core"
)

func validTx() core.NewTransaction {
	return core.NewTransaction{AccountID: "acc", Payee: "Grocer", Amount: -1000, Date: core.NewDate(2024, 1, 1)}
}

func TestCreatePublishesEvent(t *testing.T) {
	store := new(mockStore)
	pub := new(mockPublisher)
	svc := NewTransactionService(store, pub, nil)

	store.On("CreateTransaction", mock.Anything, "alice", validTx()).
		Return(core.Transaction{ID: "t1", AccountID: "acc"}, nil)
	pub.On("PublishTransactionEvent", mock.Anything, eventMatching(amqp.EventCreated, "alice", "t1")).Return(nil)

	got, err := svc.Create(context.Background(), "alice", validTx())
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
	store.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCreateSucceedsWhenPublishFails(t *testing.T) {
	store := new(mockStore)
	pub := new(mockPublisher)
	svc := NewTransactionService(store, pub, nil)

	store.On("CreateTransaction", mock.Anything, "alice", mock.Anything).Return(core.Transaction{ID: "t1"}, nil)
	pub.On("PublishTransactionEvent", mock.Anything, mock.Anything).Return(amqp.ErrCircuitOpen)

	_, err := svc.Create(context.Background(), "alice", validTx())
	assert.NoError(t, err)
}

func TestCreateWithoutBroker(t *testing.T) {
	store := new(mockStore)
	svc := NewTransactionService(store, nil, nil)
	store.On("CreateTransaction", mock.Anything, "alice", mock.Anything).Return(core.Transaction{ID: "t1"}, nil)

	_, err := svc.Create(context.Background(), "alice", validTx())
	assert.NoError(t, err)
}

func TestCreateValidatesBeforeSaving(t *testing.T) {
	store := new(mockStore)
	svc := NewTransactionService(store, nil, nil)

	bad := validTx()
	bad.Payee = ""
	_, err := svc.Create(context.Background(), "alice", bad)
	assert.ErrorIs(t, err, core.ErrEmptyPayee)
	store.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatePropagatesNotFound(t *testing.T) {
	store := new(mockStore)
	pub := new(mockPublisher)
	svc := NewTransactionService(store, pub, nil)
	store.On("CreateTransaction", mock.Anything, "alice", mock.Anything).Return(core.Transaction{}, core.ErrNotFound)

	_, err := svc.Create(context.Background(), "alice", validTx())
	assert.ErrorIs(t, err, core.ErrNotFound)
	pub.AssertNotCalled(t, "PublishTransactionEvent", mock.Anything, mock.Anything)
}

func TestBulkCreateRejectsInvalidRowUpfront(t *testing.T) {
	store := new(mockStore)
	svc := NewTransactionService(store, nil, nil)

	bad := validTx()
	bad.Date = core.Date{}
	_, err := svc.BulkCreate(context.Background(), "alice", []core.NewTransaction{validTx(), bad})
	assert.ErrorIs(t, err, core.ErrInvalidDate)
	assert.Contains(t, err.Error(), "transaction 2")
	store.AssertNotCalled(t, "BulkCreateTransactions", mock.Anything, mock.Anything, mock.Anything)
}

func TestBulkDeletePublishesOnlyDeletedIDs(t *testing.T) {
	store := new(mockStore)
	pub := new(mockPublisher)
	svc := NewTransactionService(store, pub, nil)

	store.On("BulkDeleteTransactions", mock.Anything, "alice", []string{"a", "b", "c"}).Return([]string{"a", "c"}, nil)
	pub.On("PublishTransactionEvent", mock.Anything, eventMatching(amqp.EventDeleted, "alice", "a", "c")).Return(nil)

	deleted, err := svc.BulkDelete(context.Background(), "alice", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, deleted)
	pub.AssertExpectations(t)
}

func TestBulkDeleteNothingMatched(t *testing.T) {
	store := new(mockStore)
	pub := new(mockPublisher)
	svc := NewTransactionService(store, pub, nil)
	store.On("BulkDeleteTransactions", mock.Anything, "alice", []string{"x"}).Return([]string{}, nil)

	deleted, err := svc.BulkDelete(context.Background(), "alice", []string{"x"})
	require.NoError(t, err)
	assert.Empty(t, deleted)
	pub.AssertNotCalled(t, "PublishTransactionEvent", mock.Anything, mock.Anything)
}

func TestDeleteErrors(t *testing.T) {
	store := new(mockStore)
	svc := NewTransactionService(store, nil, nil)
	boom := errors.New("db")
	store.On("DeleteTransaction", mock.Anything, "alice", "t1").Return(boom)

	assert.ErrorIs(t, svc.Delete(context.Background(), "alice", "t1"), boom)
}
