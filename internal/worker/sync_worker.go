package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/sheets"
)

// DefaultBatchSize bounds the rows appended to the ledger in one call.
const DefaultBatchSize = 50

// MirrorStore is the storage side of the ledger mirror.
type MirrorStore interface {
	UnmirroredByIDs(ctx context.Context, userID string, ids []string) ([]core.TransactionView, error)
	PendingMirror(ctx context.Context, limit int) ([]core.TransactionView, error)
	MarkMirrored(ctx context.Context, ids []string) error
}

// SyncWorker mirrors newly created transactions from SQLite to a ledger
// sheet. Deletions are only logged: the sheet is an append-only audit trail.
type SyncWorker struct {
	store     MirrorStore
	ledger    sheets.LedgerWriter
	batchSize int
	logger    *log.Logger

	// serializes appends so an event and a periodic sweep never mirror the
	// same row twice
	mu sync.Mutex
}

func NewSyncWorker(store MirrorStore, ledger sheets.LedgerWriter, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		store:     store,
		ledger:    ledger,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single transaction event from AMQP.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	switch ev.Type {
	case amqp.EventCreated:
		w.mu.Lock()
		defer w.mu.Unlock()

		views, err := w.store.UnmirroredByIDs(ctx, ev.UserID, ev.IDs)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		n, err := w.mirror(ctx, views)
		if err != nil {
			return err
		}
		w.logger.InfoContext(ctx, "Mirrored created transactions",
			log.FieldUserID, ev.UserID,
			log.FieldCount, len(ev.IDs),
			log.FieldRows, n)
		return nil

	case amqp.EventDeleted:
		w.logger.InfoContext(ctx, "Transactions deleted, ledger rows kept",
			log.FieldUserID, ev.UserID,
			log.FieldCount, len(ev.IDs),
			"ids", ev.IDs,
			"timestamp", ev.Timestamp)
		return nil

	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// ProcessPending mirrors one batch of transactions that were never mirrored.
// It is the backup path for lost AMQP messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	views, err := w.store.PendingMirror(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(views) == 0 {
		return 0, nil
	}
	w.logger.InfoContext(ctx, "Processing pending transactions", log.FieldCount, len(views))
	return w.mirror(ctx, views)
}

// StartupSyncCheck drains up to five batches of pending transactions.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	total := 0
	for i := 0; i < 5; i++ {
		n, err := w.ProcessPending(ctx)
		if err != nil {
			return fmt.Errorf("startup sync: %w", err)
		}
		total += n
		if n < w.batchSize {
			break
		}
	}
	if total == 0 {
		w.logger.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup sync completed", log.FieldRows, total)
	return nil
}

// Run calls ProcessPending every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.ErrorContext(ctx, "Periodic sync failed", log.FieldError, err)
			}
		}
	}
}

// mirror appends views in batches and marks each batch once it is written.
// Callers hold w.mu.
func (w *SyncWorker) mirror(ctx context.Context, views []core.TransactionView) (int, error) {
	written := 0
	for start := 0; start < len(views); start += w.batchSize {
		end := start + w.batchSize
		if end > len(views) {
			end = len(views)
		}
		batch := views[start:end]

		n, err := w.ledger.AppendTransactions(ctx, batch)
		if err != nil {
			return written, fmt.Errorf("append to ledger: %w", err)
		}
		written += n

		ids := make([]string, len(batch))
		for i, v := range batch {
			ids[i] = v.ID
		}
		if err := w.store.MarkMirrored(ctx, ids); err != nil {
			// rows are in the sheet already; a retry would duplicate them
			w.logger.ErrorContext(ctx, "Failed to mark as mirrored", log.FieldError, err, log.FieldCount, len(ids))
		}
	}
	return written, nil
}
