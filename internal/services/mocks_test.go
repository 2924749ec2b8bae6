package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/storage"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListTransactions(ctx context.Context, userID string, f storage.TransactionFilter) ([]core.TransactionView, error) {
	args := m.Called(ctx, userID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]core.TransactionView), args.Error(1)
}

func (m *mockStore) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(core.Transaction), args.Error(1)
}

func (m *mockStore) CreateTransaction(ctx context.Context, userID string, nt core.NewTransaction) (core.Transaction, error) {
	args := m.Called(ctx, userID, nt)
	return args.Get(0).(core.Transaction), args.Error(1)
}

func (m *mockStore) BulkCreateTransactions(ctx context.Context, userID string, nts []core.NewTransaction) ([]core.Transaction, error) {
	args := m.Called(ctx, userID, nts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]core.Transaction), args.Error(1)
}

func (m *mockStore) UpdateTransaction(ctx context.Context, userID, id string, nt core.NewTransaction) (core.Transaction, error) {
	args := m.Called(ctx, userID, id, nt)
	return args.Get(0).(core.Transaction), args.Error(1)
}

func (m *mockStore) DeleteTransaction(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *mockStore) BulkDeleteTransactions(ctx context.Context, userID string, ids []string) ([]string, error) {
	args := m.Called(ctx, userID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// eventMatching matches events of the given type and ids, ignoring the timestamp.
func eventMatching(t amqp.EventType, userID string, ids ...string) any {
	return mock.MatchedBy(func(ev *amqp.TransactionEvent) bool {
		if ev.Type != t || ev.UserID != userID || len(ev.IDs) != len(ids) {
			return false
		}
		for i := range ids {
			if ev.IDs[i] != ids[i] {
				return false
			}
		}
		return true
	})
}
