package sheets

import (
	"context"

	"finance/internal/core"
	"finance/internal/importer"
)

// Ports for outbound adapters.
type (
	// GridReader reads a spreadsheet range as an import grid.
	GridReader interface {
		ReadGrid(ctx context.Context, rangeA1 string) (importer.RawGrid, error)
	}

	// LedgerWriter appends transactions to the ledger mirror and returns the
	// number of rows written.
	LedgerWriter interface {
		AppendTransactions(ctx context.Context, txs []core.TransactionView) (int, error)
	}
)

// LedgerHeaders is the header row of a ledger mirror sheet.
var LedgerHeaders = []string{"Date", "Account", "Category", "Payee", "Amount", "Notes", "ID"}
