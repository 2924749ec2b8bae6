package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"finance/internal/core"
)

// namedRow is the common shape of accounts and categories.
type namedRow struct {
	ID     string
	UserID string
	Name   string
}

// namedTable implements the user scoped CRUD shared by accounts and
// categories. table is a trusted constant.
type namedTable struct {
	table string
}

var (
	accountsTable   = namedTable{table: "accounts"}
	categoriesTable = namedTable{table: "categories"}
)

func (t namedTable) list(ctx context.Context, q queryer, userID string) ([]namedRow, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, user_id, name FROM "+t.table+" WHERE user_id = ? ORDER BY name COLLATE NOCASE, id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.table, err)
	}
	defer rows.Close()

	out := []namedRow{}
	for rows.Next() {
		var n namedRow
		if err := rows.Scan(&n.ID, &n.UserID, &n.Name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.table, err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (t namedTable) get(ctx context.Context, q queryer, userID, id string) (namedRow, error) {
	var n namedRow
	err := q.QueryRowContext(ctx,
		"SELECT id, user_id, name FROM "+t.table+" WHERE id = ? AND user_id = ?",
		id, userID).Scan(&n.ID, &n.UserID, &n.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return namedRow{}, core.ErrNotFound
	}
	if err != nil {
		return namedRow{}, fmt.Errorf("get %s %s: %w", t.table, id, err)
	}
	return n, nil
}

// owned returns core.ErrNotFound unless id exists and belongs to userID.
func (t namedTable) owned(ctx context.Context, q queryer, userID, id string) error {
	var one int
	err := q.QueryRowContext(ctx,
		"SELECT 1 FROM "+t.table+" WHERE id = ? AND user_id = ?", id, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check %s ownership: %w", t.table, err)
	}
	return nil
}

func (t namedTable) create(ctx context.Context, q queryer, id, userID, name string) (namedRow, error) {
	name = strings.TrimSpace(name)
	if err := core.ValidateName(name); err != nil {
		return namedRow{}, err
	}
	if _, err := q.ExecContext(ctx,
		"INSERT INTO "+t.table+" (id, user_id, name) VALUES (?, ?, ?)", id, userID, name); err != nil {
		return namedRow{}, fmt.Errorf("insert %s: %w", t.table, err)
	}
	slog.DebugContext(ctx, "Row created", "table", t.table, "id", id, "user_id", userID)
	return namedRow{ID: id, UserID: userID, Name: name}, nil
}

func (t namedTable) rename(ctx context.Context, q queryer, userID, id, name string) (namedRow, error) {
	name = strings.TrimSpace(name)
	if err := core.ValidateName(name); err != nil {
		return namedRow{}, err
	}
	res, err := q.ExecContext(ctx,
		"UPDATE "+t.table+" SET name = ? WHERE id = ? AND user_id = ?", name, id, userID)
	if err != nil {
		return namedRow{}, fmt.Errorf("update %s %s: %w", t.table, id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return namedRow{}, fmt.Errorf("update %s %s: %w", t.table, id, err)
	} else if n == 0 {
		return namedRow{}, core.ErrNotFound
	}
	return namedRow{ID: id, UserID: userID, Name: name}, nil
}

func (t namedTable) delete(ctx context.Context, q queryer, userID, id string) error {
	res, err := q.ExecContext(ctx,
		"DELETE FROM "+t.table+" WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", t.table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", t.table, id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Row deleted", "table", t.table, "id", id, "user_id", userID)
	return nil
}

// bulkDelete deletes the ids owned by userID and returns them. Ids that do
// not exist or belong to another user are ignored.
func (t namedTable) bulkDelete(ctx context.Context, tx *sql.Tx, userID string, ids []string) ([]string, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []string{}, nil
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM "+t.table+" WHERE user_id = ? AND id IN ("+placeholders(len(ids))+")",
		stringArgs([]any{userID}, ids)...)
	if err != nil {
		return nil, fmt.Errorf("select %s for delete: %w", t.table, err)
	}
	owned, err := collectIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("select %s for delete: %w", t.table, err)
	}
	if len(owned) == 0 {
		return []string{}, nil
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM "+t.table+" WHERE user_id = ? AND id IN ("+placeholders(len(owned))+")",
		stringArgs([]any{userID}, owned)...); err != nil {
		return nil, fmt.Errorf("bulk delete %s: %w", t.table, err)
	}
	slog.InfoContext(ctx, "Rows bulk deleted", "table", t.table, "requested", len(ids), "deleted", len(owned))
	return orderLike(ids, owned), nil
}

func collectIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// orderLike returns the members of subset in the order they appear in ids.
func orderLike(ids, subset []string) []string {
	in := make(map[string]struct{}, len(subset))
	for _, id := range subset {
		in[id] = struct{}{}
	}
	out := make([]string, 0, len(subset))
	for _, id := range ids {
		if _, ok := in[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
