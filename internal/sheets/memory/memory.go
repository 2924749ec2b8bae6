package memory

import (
	"context"
	"fmt"
	"sync"

	"finance/internal/core"
	"finance/internal/importer"
	ports "finance/internal/sheets"
)

var (
	_ ports.GridReader   = (*Store)(nil)
	_ ports.LedgerWriter = (*Store)(nil)
)

// Store is an in-memory spreadsheet: named grids to read from and an
// append-only ledger.
type Store struct {
	mu     sync.Mutex
	grids  map[string]importer.RawGrid
	ledger []core.TransactionView
}

func New() *Store {
	return &Store{grids: make(map[string]importer.RawGrid)}
}

// SetGrid registers the grid returned for rangeA1.
func (s *Store) SetGrid(rangeA1 string, grid importer.RawGrid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grids[rangeA1] = cloneGrid(grid)
}

func (s *Store) ReadGrid(_ context.Context, rangeA1 string) (importer.RawGrid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grid, ok := s.grids[rangeA1]
	if !ok {
		return nil, fmt.Errorf("range %q: %w", rangeA1, core.ErrNotFound)
	}
	if len(grid) == 0 {
		return nil, importer.ErrEmptyGrid
	}
	return cloneGrid(grid), nil
}

func (s *Store) AppendTransactions(_ context.Context, txs []core.TransactionView) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = append(s.ledger, txs...)
	return len(txs), nil
}

// Ledger returns a copy of every appended row.
func (s *Store) Ledger() []core.TransactionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.TransactionView(nil), s.ledger...)
}

func cloneGrid(grid importer.RawGrid) importer.RawGrid {
	out := make(importer.RawGrid, len(grid))
	for i, row := range grid {
		out[i] = append([]string(nil), row...)
	}
	return out
}
