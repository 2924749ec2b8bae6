package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"finance/internal/core"
)

// TransactionFilter narrows a transaction listing. From and To are inclusive.
type TransactionFilter struct {
	AccountID string
	From      core.Date
	To        core.Date
}

const transactionColumns = "t.id, t.account_id, t.category_id, t.payee, t.amount, t.date, t.notes"

// ListTransactions returns the user's transactions in the range, newest first,
// joined with account and category names.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]core.TransactionView, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`, a.name, c.name
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE a.user_id = ?
		  AND t.date >= ? AND t.date <= ?
		  AND (? = '' OR t.account_id = ?)
		ORDER BY t.date DESC, t.created_at DESC, t.id`,
		userID, f.From.String(), f.To.String(), f.AccountID, f.AccountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return scanViews(rows)
}

// GetTransaction returns core.ErrNotFound when id does not exist or its
// account belongs to another user.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	return getTransaction(ctx, r.db, userID, id)
}

func getTransaction(ctx context.Context, q queryer, userID, id string) (core.Transaction, error) {
	var (
		t   core.Transaction
		raw rawTransaction
	)
	err := q.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = ? AND a.user_id = ?`, id, userID).Scan(raw.dest(&t)...)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	if err := raw.apply(&t); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// CreateTransaction inserts nt after checking that its account and category
// belong to userID.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID string, nt core.NewTransaction) (core.Transaction, error) {
	var created core.Transaction
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkReferences(ctx, tx, userID, []core.NewTransaction{nt}); err != nil {
			return err
		}
		var err error
		created, err = r.insertTransaction(ctx, tx, nt)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Transaction saved", "id", created.ID, "account_id", created.AccountID, "amount_milliunits", int64(created.Amount))
	return created, nil
}

// BulkCreateTransactions inserts every transaction or none.
func (r *SQLiteRepository) BulkCreateTransactions(ctx context.Context, userID string, nts []core.NewTransaction) ([]core.Transaction, error) {
	created := make([]core.Transaction, 0, len(nts))
	if len(nts) == 0 {
		return created, nil
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkReferences(ctx, tx, userID, nts); err != nil {
			return err
		}
		for i, nt := range nts {
			t, err := r.insertTransaction(ctx, tx, nt)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			created = append(created, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Transactions bulk saved", "count", len(created))
	return created, nil
}

// UpdateTransaction replaces every field of an owned transaction.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID, id string, nt core.NewTransaction) (core.Transaction, error) {
	var updated core.Transaction
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getTransaction(ctx, tx, userID, id); err != nil {
			return err
		}
		if err := checkReferences(ctx, tx, userID, []core.NewTransaction{nt}); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE transactions
			SET account_id = ?, category_id = ?, payee = ?, amount = ?, date = ?, notes = ?
			WHERE id = ?`,
			nt.AccountID, nullable(nt.CategoryID), nt.Payee, int64(nt.Amount), nt.Date.String(), nullable(nt.Notes), id); err != nil {
			return fmt.Errorf("update transaction %s: %w", id, err)
		}
		updated = fromNew(id, nt)
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return updated, nil
}

// DeleteTransaction removes an owned transaction.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM transactions
		WHERE id = ? AND account_id IN (SELECT id FROM accounts WHERE user_id = ?)`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// BulkDeleteTransactions deletes the ids whose account belongs to userID and
// returns exactly those ids.
func (r *SQLiteRepository) BulkDeleteTransactions(ctx context.Context, userID string, ids []string) ([]string, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []string{}, nil
	}
	var deleted []string
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT t.id FROM transactions t
			JOIN accounts a ON a.id = t.account_id
			WHERE a.user_id = ? AND t.id IN (`+placeholders(len(ids))+`)`,
			stringArgs([]any{userID}, ids)...)
		if err != nil {
			return fmt.Errorf("select transactions for delete: %w", err)
		}
		owned, err := collectIDs(rows)
		if err != nil {
			return fmt.Errorf("select transactions for delete: %w", err)
		}
		if len(owned) == 0 {
			deleted = []string{}
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM transactions WHERE id IN ("+placeholders(len(owned))+")",
			stringArgs(nil, owned)...); err != nil {
			return fmt.Errorf("bulk delete transactions: %w", err)
		}
		deleted = orderLike(ids, owned)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Transactions bulk deleted", "requested", len(ids), "deleted", len(deleted))
	return deleted, nil
}

func (r *SQLiteRepository) insertTransaction(ctx context.Context, q queryer, nt core.NewTransaction) (core.Transaction, error) {
	if err := nt.Validate(); err != nil {
		return core.Transaction{}, err
	}
	id := r.newID()
	if _, err := q.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, category_id, payee, amount, date, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, nt.AccountID, nullable(nt.CategoryID), nt.Payee, int64(nt.Amount), nt.Date.String(), nullable(nt.Notes)); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return fromNew(id, nt), nil
}

// checkReferences verifies every distinct account and category referenced by
// nts belongs to userID.
func checkReferences(ctx context.Context, q queryer, userID string, nts []core.NewTransaction) error {
	accounts := make([]string, 0, 1)
	categories := make([]string, 0)
	for _, nt := range nts {
		accounts = append(accounts, nt.AccountID)
		if nt.CategoryID != nil {
			categories = append(categories, *nt.CategoryID)
		}
	}
	for _, id := range dedupe(accounts) {
		if err := accountsTable.owned(ctx, q, userID, id); err != nil {
			return fmt.Errorf("account %s: %w", id, err)
		}
	}
	for _, id := range dedupe(categories) {
		if err := categoriesTable.owned(ctx, q, userID, id); err != nil {
			return fmt.Errorf("category %s: %w", id, err)
		}
	}
	return nil
}

// rawTransaction holds the columns that need conversion after a scan.
type rawTransaction struct {
	category sql.NullString
	amount   int64
	date     string
	notes    sql.NullString
}

func (raw *rawTransaction) dest(t *core.Transaction) []any {
	return []any{&t.ID, &t.AccountID, &raw.category, &t.Payee, &raw.amount, &raw.date, &raw.notes}
}

func (raw *rawTransaction) apply(t *core.Transaction) error {
	d, err := core.ParseDate(raw.date)
	if err != nil {
		return fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	t.Date = d
	t.Amount = core.Money(raw.amount)
	t.CategoryID = nil
	if raw.category.Valid {
		t.CategoryID = &raw.category.String
	}
	t.Notes = nil
	if raw.notes.Valid {
		t.Notes = &raw.notes.String
	}
	return nil
}

func fromNew(id string, nt core.NewTransaction) core.Transaction {
	return core.Transaction{
		ID:         id,
		AccountID:  nt.AccountID,
		CategoryID: nt.CategoryID,
		Payee:      nt.Payee,
		Amount:     nt.Amount,
		Date:       nt.Date,
		Notes:      nt.Notes,
	}
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// TransactionsByIDs returns the owned transactions among ids with their
// account and category names. Missing ids are skipped.
func (r *SQLiteRepository) TransactionsByIDs(ctx context.Context, userID string, ids []string) ([]core.TransactionView, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []core.TransactionView{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`, a.name, c.name
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE a.user_id = ? AND t.id IN (`+placeholders(len(ids))+`)
		ORDER BY t.date, t.id`,
		stringArgs([]any{userID}, ids)...)
	if err != nil {
		return nil, fmt.Errorf("transactions by id: %w", err)
	}
	return scanViews(rows)
}

func scanViews(rows *sql.Rows) ([]core.TransactionView, error) {
	defer rows.Close()

	out := []core.TransactionView{}
	for rows.Next() {
		var (
			v        core.TransactionView
			raw      rawTransaction
			category sql.NullString
		)
		dest := append(raw.dest(&v.Transaction), &v.Account, &category)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if err := raw.apply(&v.Transaction); err != nil {
			return nil, err
		}
		if category.Valid {
			v.Category = &category.String
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
