package importer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"finance/internal/core"
)

// InputDateLayout is the pattern date cells must follow.
const InputDateLayout = "2006-01-02 15:04:05"

// Record is one mapped data row. Only the bound fields are present.
type Record struct {
	// Line is the 1-based line of the row in the grid, header included.
	Line   int
	Amount core.Money
	Date   core.Date
	Payee  string
	Notes  string

	present map[Field]bool
}

// Has reports whether the row carried a cell for f.
func (r Record) Has(f Field) bool {
	return r.present[f]
}

// RowError describes a cell that could not be converted.
type RowError struct {
	Line  int
	Field Field
	Value string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d, %s %q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ImportError aggregates every row failure of a batch.
type ImportError struct {
	Rows []*RowError
}

func (e *ImportError) Error() string {
	if len(e.Rows) == 1 {
		return "import failed: " + e.Rows[0].Error()
	}
	return fmt.Sprintf("import failed: %d invalid rows, first: %v", len(e.Rows), e.Rows[0])
}

// Details returns one message per failing row.
func (e *ImportError) Details() []string {
	out := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		out[i] = r.Error()
	}
	return out
}

var (
	ErrEmptyGrid       = errors.New("grid has no header row")
	ErrIncomplete      = errors.New("required fields are not mapped")
	errMissingRequired = errors.New("required cell is empty")
)

// BuildRecords maps the data rows of grid through a.
//
// Cells in unbound columns are discarded and rows left with no cells are
// dropped. A row that keeps only optional cells still yields a Record; the
// completion gate is enforced by Normalize. Any conversion failure aborts
// the batch and every failing row is reported in an *ImportError.
func BuildRecords(grid RawGrid, a *Assignment) ([]Record, error) {
	if len(grid) == 0 {
		return nil, ErrEmptyGrid
	}

	var (
		records []Record
		failed  []*RowError
	)
	for i, row := range grid.Body() {
		line := i + 2
		cells := make(map[Field]string)
		for col, cell := range row {
			if f := a.Field(col); f != Unassigned {
				cells[f] = cell
			}
		}
		if len(cells) == 0 {
			continue
		}

		rec := Record{Line: line, present: make(map[Field]bool, len(cells))}
		for f, v := range cells {
			rec.present[f] = true
			switch f {
			case FieldAmount:
				m, err := core.ParseMoney(v)
				if err != nil {
					failed = append(failed, &RowError{Line: line, Field: f, Value: v, Err: core.ErrInvalidAmount})
					continue
				}
				rec.Amount = m
			case FieldDate:
				d, err := parseInputDate(v)
				if err != nil {
					failed = append(failed, &RowError{Line: line, Field: f, Value: v, Err: err})
					continue
				}
				rec.Date = d
			case FieldPayee:
				rec.Payee = strings.TrimSpace(v)
			case FieldNotes:
				rec.Notes = strings.TrimSpace(v)
			}
		}
		records = append(records, rec)
	}

	if len(failed) > 0 {
		sortRowErrors(failed)
		return nil, &ImportError{Rows: failed}
	}
	return records, nil
}

func parseInputDate(v string) (core.Date, error) {
	t, err := time.Parse(InputDateLayout, strings.TrimSpace(v))
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: expected %s", core.ErrInvalidDate, InputDateLayout)
	}
	return core.DateOf(t), nil
}

// Normalize attaches accountID to every record and converts them into
// persistable transactions. Records lacking a required field fail the batch.
func Normalize(records []Record, accountID string) ([]core.NewTransaction, error) {
	out := make([]core.NewTransaction, 0, len(records))
	var failed []*RowError
	for _, r := range records {
		bad := false
		for _, f := range RequiredFields {
			if !r.Has(f) || (f == FieldPayee && r.Payee == "") {
				failed = append(failed, &RowError{Line: r.Line, Field: f, Err: errMissingRequired})
				bad = true
			}
		}
		if bad {
			continue
		}
		nt := core.NewTransaction{
			AccountID: accountID,
			Payee:     r.Payee,
			Amount:    r.Amount,
			Date:      r.Date,
		}
		if r.Has(FieldNotes) && r.Notes != "" {
			notes := r.Notes
			nt.Notes = &notes
		}
		out = append(out, nt)
	}
	if len(failed) > 0 {
		return nil, &ImportError{Rows: failed}
	}
	return out, nil
}

func sortRowErrors(errs []*RowError) {
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].Line != errs[j].Line {
			return errs[i].Line < errs[j].Line
		}
		return errs[i].Field < errs[j].Field
	})
}
