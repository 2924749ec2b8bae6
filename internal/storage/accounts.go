package storage

import (
	"context"
	"database/sql"

	"finance/internal/core"
)

func toAccount(n namedRow) core.Account {
	return core.Account{ID: n.ID, UserID: n.UserID, Name: n.Name}
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := accountsTable.list(ctx, r.db, userID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Account, len(rows))
	for i, n := range rows {
		out[i] = toAccount(n)
	}
	return out, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	n, err := accountsTable.get(ctx, r.db, userID, id)
	return toAccount(n), err
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, userID, name string) (core.Account, error) {
	n, err := accountsTable.create(ctx, r.db, r.newID(), userID, name)
	return toAccount(n), err
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, userID, id, name string) (core.Account, error) {
	n, err := accountsTable.rename(ctx, r.db, userID, id, name)
	return toAccount(n), err
}

// DeleteAccount removes the account and, through the foreign key cascade,
// its transactions.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, userID, id string) error {
	return accountsTable.delete(ctx, r.db, userID, id)
}

func (r *SQLiteRepository) BulkDeleteAccounts(ctx context.Context, userID string, ids []string) ([]string, error) {
	var deleted []string
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		deleted, err = accountsTable.bulkDelete(ctx, tx, userID, ids)
		return err
	})
	return deleted, err
}
