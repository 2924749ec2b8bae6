package storage

import (
	"context"
	"database/sql"

	"finance/internal/core"
)

func toCategory(n namedRow) core.Category {
	return core.Category{ID: n.ID, UserID: n.UserID, Name: n.Name}
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := categoriesTable.list(ctx, r.db, userID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Category, len(rows))
	for i, n := range rows {
		out[i] = toCategory(n)
	}
	return out, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	n, err := categoriesTable.get(ctx, r.db, userID, id)
	return toCategory(n), err
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, userID, name string) (core.Category, error) {
	n, err := categoriesTable.create(ctx, r.db, r.newID(), userID, name)
	return toCategory(n), err
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, userID, id, name string) (core.Category, error) {
	n, err := categoriesTable.rename(ctx, r.db, userID, id, name)
	return toCategory(n), err
}

// DeleteCategory removes the category. Its transactions stay and become
// uncategorized.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	return categoriesTable.delete(ctx, r.db, userID, id)
}

func (r *SQLiteRepository) BulkDeleteCategories(ctx context.Context, userID string, ids []string) ([]string, error) {
	var deleted []string
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		deleted, err = categoriesTable.bulkDelete(ctx, tx, userID, ids)
		return err
	})
	return deleted, err
}
