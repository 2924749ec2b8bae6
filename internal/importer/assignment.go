// Package importer turns tabular bank exports into transactions.
//
// A RawGrid comes from a CSV upload, an OFX statement or a Google Sheets
// range. The caller binds grid columns to transaction fields with an
// Assignment, and BuildRecords converts the data rows into typed records.
package importer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Field is a transaction attribute a grid column can be bound to.
type Field string

const (
	FieldAmount Field = "amount"
	FieldDate   Field = "date"
	FieldPayee  Field = "payee"
	FieldNotes  Field = "notes"

	// Unassigned marks a column that does not contribute to records.
	Unassigned Field = ""
	skipField        = "skip"
)

// RequiredFields must each be bound before an import can run.
var RequiredFields = []Field{FieldAmount, FieldDate, FieldPayee}

// RawGrid is a table of strings whose first row holds the headers.
// Rows may be ragged.
type RawGrid [][]string

// Headers returns the header row, or nil for an empty grid.
func (g RawGrid) Headers() []string {
	if len(g) == 0 {
		return nil
	}
	return g[0]
}

// Body returns the data rows.
func (g RawGrid) Body() [][]string {
	if len(g) < 2 {
		return nil
	}
	return g[1:]
}

// ParseField maps a user supplied field name to a Field. "skip" and the
// empty string both mean Unassigned.
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldAmount, FieldDate, FieldPayee, FieldNotes:
		return f, nil
	case Unassigned, skipField:
		return Unassigned, nil
	default:
		return Unassigned, fmt.Errorf("unknown field %q", s)
	}
}

// Assignment binds column indexes to fields. Each field is bound to at most
// one column.
type Assignment struct {
	columns map[int]Field
}

func NewAssignment() *Assignment {
	return &Assignment{columns: make(map[int]Field)}
}

// Assign binds column to f, first releasing any other column holding f.
// Assigning Unassigned clears the column.
func (a *Assignment) Assign(column int, f Field) {
	if a.columns == nil {
		a.columns = make(map[int]Field)
	}
	if f == skipField {
		f = Unassigned
	}
	if f != Unassigned {
		for c, bound := range a.columns {
			if bound == f {
				delete(a.columns, c)
			}
		}
	}
	if f == Unassigned {
		delete(a.columns, column)
		return
	}
	a.columns[column] = f
}

// Field returns the field bound to column.
func (a *Assignment) Field(column int) Field {
	if a == nil {
		return Unassigned
	}
	return a.columns[column]
}

// Column returns the column bound to f.
func (a *Assignment) Column(f Field) (int, bool) {
	if a == nil {
		return 0, false
	}
	for c, bound := range a.columns {
		if bound == f {
			return c, true
		}
	}
	return 0, false
}

// Progress is the number of bound columns.
func (a *Assignment) Progress() int {
	if a == nil {
		return 0
	}
	return len(a.columns)
}

// Missing lists the required fields that are not bound yet.
func (a *Assignment) Missing() []Field {
	var out []Field
	for _, f := range RequiredFields {
		if _, ok := a.Column(f); !ok {
			out = append(out, f)
		}
	}
	return out
}

// Complete reports whether every required field is bound.
func (a *Assignment) Complete() bool {
	return len(a.Missing()) == 0
}

// Columns returns the bound column indexes in ascending order.
func (a *Assignment) Columns() []int {
	if a == nil {
		return nil
	}
	out := make([]int, 0, len(a.columns))
	for c := range a.columns {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// ParseAssignment builds an Assignment from a column index → field name map,
// as sent by API clients and the CLI. Binding one field to two columns is
// rejected rather than silently resolved.
func ParseAssignment(m map[string]string) (*Assignment, error) {
	a := NewAssignment()
	seen := make(map[Field]int)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		col, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || col < 0 {
			return nil, fmt.Errorf("invalid column index %q", k)
		}
		f, err := ParseField(m[k])
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", col, err)
		}
		if f == Unassigned {
			continue
		}
		if prev, dup := seen[f]; dup {
			return nil, fmt.Errorf("field %q bound to columns %d and %d", f, prev, col)
		}
		seen[f] = col
		a.Assign(col, f)
	}
	return a, nil
}

// ParseMapSpec parses the CLI form "0=date,1=payee,2=amount".
func ParseMapSpec(spec string) (*Assignment, error) {
	m := make(map[string]string)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid mapping %q, expected column=field", part)
		}
		if _, dup := m[k]; dup {
			return nil, fmt.Errorf("column %s mapped twice", k)
		}
		m[k] = v
	}
	return ParseAssignment(m)
}
