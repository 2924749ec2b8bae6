package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finance/internal/core"
)

// UnmirroredByIDs is TransactionsByIDs restricted to transactions that have
// not been appended to the ledger mirror yet.
func (r *SQLiteRepository) UnmirroredByIDs(ctx context.Context, userID string, ids []string) ([]core.TransactionView, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []core.TransactionView{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`, a.name, c.name
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE a.user_id = ? AND t.mirrored_at IS NULL AND t.id IN (`+placeholders(len(ids))+`)
		ORDER BY t.date, t.id`,
		stringArgs([]any{userID}, ids)...)
	if err != nil {
		return nil, fmt.Errorf("unmirrored by id: %w", err)
	}
	return scanViews(rows)
}

// PendingMirror returns up to limit transactions of any user that were never
// mirrored, oldest first.
func (r *SQLiteRepository) PendingMirror(ctx context.Context, limit int) ([]core.TransactionView, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`, a.name, c.name
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.mirrored_at IS NULL
		ORDER BY t.created_at, t.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending mirror: %w", err)
	}
	return scanViews(rows)
}

// MarkMirrored stamps ids as mirrored. Unknown ids are ignored.
func (r *SQLiteRepository) MarkMirrored(ctx context.Context, ids []string) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET mirrored_at = ? WHERE mirrored_at IS NULL AND id IN (`+placeholders(len(ids))+`)`,
		stringArgs([]any{now}, ids)...)
	if err != nil {
		return fmt.Errorf("mark mirrored: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.DebugContext(ctx, "Marked transactions as mirrored", "requested", len(ids), "updated", n)
	return nil
}
