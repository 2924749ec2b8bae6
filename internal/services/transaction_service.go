package services

import (
	"context"
	"fmt"
	"log/slog"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/storage"
)

// TransactionStore is the persistence the transaction service needs.
type TransactionStore interface {
	ListTransactions(ctx context.Context, userID string, f storage.TransactionFilter) ([]core.TransactionView, error)
	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	CreateTransaction(ctx context.Context, userID string, nt core.NewTransaction) (core.Transaction, error)
	BulkCreateTransactions(ctx context.Context, userID string, nts []core.NewTransaction) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id string, nt core.NewTransaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	BulkDeleteTransactions(ctx context.Context, userID string, ids []string) ([]string, error)
}

// EventPublisher announces transaction changes to other processes.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// TransactionService writes transactions to SQLite and publishes change
// events. A publish failure never fails the request: the rows are already
// committed.
type TransactionService struct {
	store     TransactionStore
	publisher EventPublisher
	logger    *log.StructuredLogger
}

// NewTransactionService accepts a nil publisher when no broker is configured.
func NewTransactionService(store TransactionStore, publisher EventPublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		store:     store,
		publisher: publisher,
		logger:    log.NewStructuredLogger(logger.WithComponent(log.ComponentTransaction)),
	}
}

func (s *TransactionService) List(ctx context.Context, userID string, f storage.TransactionFilter) ([]core.TransactionView, error) {
	return s.store.ListTransactions(ctx, userID, f)
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, id)
}

func (s *TransactionService) Create(ctx context.Context, userID string, nt core.NewTransaction) (core.Transaction, error) {
	if err := nt.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t, err := s.store.CreateTransaction(ctx, userID, nt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.logger.LogTransactionsCreated(ctx, userID, 1, log.OpCreate)
	s.publish(ctx, amqp.EventCreated, userID, []string{t.ID})
	return t, nil
}

// BulkCreate stores every transaction or none.
func (s *TransactionService) BulkCreate(ctx context.Context, userID string, nts []core.NewTransaction) ([]core.Transaction, error) {
	for i, nt := range nts {
		if err := nt.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i+1, err)
		}
	}
	created, err := s.store.BulkCreateTransactions(ctx, userID, nts)
	if err != nil {
		return nil, fmt.Errorf("save transactions: %w", err)
	}
	if len(created) == 0 {
		return created, nil
	}
	s.logger.LogTransactionsCreated(ctx, userID, len(created), log.OpBulkCreate)
	ids := make([]string, len(created))
	for i, t := range created {
		ids[i] = t.ID
	}
	s.publish(ctx, amqp.EventCreated, userID, ids)
	return created, nil
}

func (s *TransactionService) Update(ctx context.Context, userID, id string, nt core.NewTransaction) (core.Transaction, error) {
	if err := nt.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return s.store.UpdateTransaction(ctx, userID, id, nt)
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.EventDeleted, userID, []string{id})
	return nil
}

// BulkDelete returns the subset of ids that belonged to userID.
func (s *TransactionService) BulkDelete(ctx context.Context, userID string, ids []string) ([]string, error) {
	deleted, err := s.store.BulkDeleteTransactions(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("delete transactions: %w", err)
	}
	if len(deleted) > 0 {
		s.publish(ctx, amqp.EventDeleted, userID, deleted)
	}
	return deleted, nil
}

func (s *TransactionService) publish(ctx context.Context, t amqp.EventType, userID string, ids []string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping transaction event", "type", t)
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(t, userID, ids)); err != nil {
		s.logger.LogError(ctx, "Failed to publish transaction event", err, log.ComponentAMQP, string(t),
			log.NewFields().WithUserID(userID).WithCount(len(ids)))
	}
}
