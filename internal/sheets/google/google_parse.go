package google

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"finance/internal/core"
	"finance/internal/importer"
)

// toGrid converts a Sheets value range into a RawGrid. Trailing empty rows
// are trimmed; empty rows in between are kept so line numbers match.
func toGrid(values [][]interface{}) importer.RawGrid {
	grid := make(importer.RawGrid, 0, len(values))
	for _, row := range values {
		grid = append(grid, toStrings(row))
	}
	for len(grid) > 0 && blank(grid[len(grid)-1]) {
		grid = grid[:len(grid)-1]
	}
	return grid
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

// ledgerRow renders a transaction in LedgerHeaders order. Amounts are sent
// as plain decimals so USER_ENTERED turns them into numbers.
func ledgerRow(tx core.TransactionView) []interface{} {
	category := ""
	if tx.Category != nil {
		category = *tx.Category
	}
	notes := ""
	if tx.Notes != nil {
		notes = *tx.Notes
	}
	return []interface{}{
		tx.Date.String(),
		tx.Account,
		category,
		tx.Payee,
		tx.Amount.Decimal().String(),
		notes,
		tx.ID,
	}
}

// groupByYear splits transactions into one batch per calendar year, in
// ascending year order. Each batch keeps its input order.
func groupByYear(txs []core.TransactionView) ([]int, map[int][]core.TransactionView) {
	byYear := make(map[int][]core.TransactionView)
	for _, tx := range txs {
		y := tx.Date.Year()
		byYear[y] = append(byYear[y], tx)
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	return years, byYear
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// quoteSheet quotes a sheet name for use in an A1 range.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
