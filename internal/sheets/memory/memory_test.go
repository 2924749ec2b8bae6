package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance/internal/core"
	"finance/internal/importer"
)

func TestStoreReadGrid(t *testing.T) {
	s := New()
	s.SetGrid("Export!A:C", importer.RawGrid{{"Date", "Payee"}, {"2024-01-01 00:00:00", "Cafe"}})

	grid, err := s.ReadGrid(context.Background(), "Export!A:C")
	require.NoError(t, err)
	assert.Len(t, grid, 2)

	// callers cannot mutate the stored grid
	grid[1][1] = "changed"
	again, err := s.ReadGrid(context.Background(), "Export!A:C")
	require.NoError(t, err)
	assert.Equal(t, "Cafe", again[1][1])

	_, err = s.ReadGrid(context.Background(), "Missing!A:A")
	assert.ErrorIs(t, err, core.ErrNotFound)

	s.SetGrid("Empty!A:A", nil)
	_, err = s.ReadGrid(context.Background(), "Empty!A:A")
	assert.ErrorIs(t, err, importer.ErrEmptyGrid)
}

func TestStoreAppendTransactions(t *testing.T) {
	s := New()
	n, err := s.AppendTransactions(context.Background(), []core.TransactionView{
		{Transaction: core.Transaction{ID: "a"}},
		{Transaction: core.Transaction{ID: "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, s.Ledger(), 2)
	assert.Equal(t, "b", s.Ledger()[1].ID)
}
