package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finance/internal/core"
	"finance/internal/importer"
)

type fakeSheets struct {
	mu       sync.Mutex
	titles   []string
	values   [][]interface{}
	appended map[string][][]interface{}
	added    []string
	headers  map[string][]interface{}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			title := rq.AddSheet.Properties.Title
			f.added = append(f.added, title)
			f.titles = append(f.titles, title)
		}
		_, _ = io.WriteString(w, `{}`)
	case strings.HasSuffix(path, ":append"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		rng := rangeOf(path, ":append")
		f.appended[rng] = append(f.appended[rng], vr.Values...)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRows": len(vr.Values)},
		})
	case strings.Contains(path, "/values/") && r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.headers[rangeOf(path, "")] = vr.Values[0]
		_, _ = io.WriteString(w, `{}`)
	case strings.Contains(path, "/values/"):
		_ = json.NewEncoder(w).Encode(map[string]any{"values": f.values})
	default:
		sheets := make([]map[string]any, 0, len(f.titles))
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	}
}

func rangeOf(path, suffix string) string {
	i := strings.Index(path, "/values/")
	return strings.TrimSuffix(path[i+len("/values/"):], suffix)
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	if f.appended == nil {
		f.appended = make(map[string][][]interface{})
	}
	if f.headers == nil {
		f.headers = make(map[string][]interface{})
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithoutAuthentication(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-id", "")
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "id"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")
}

func TestNewMissingCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "id", CredentialsFile: "/does/not/exist.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestReadGrid(t *testing.T) {
	f := &fakeSheets{values: [][]interface{}{
		{"Date", "Payee", "Amount"},
		{"2024-01-01 10:00:00", " Grocer ", "-12.5"},
		{},
		{"2024-01-02 10:00:00", "Cafe", "-3"},
		{},
	}}
	c := newTestClient(t, f)

	grid, err := c.ReadGrid(context.Background(), "Export!A1:C")
	require.NoError(t, err)
	require.Len(t, grid, 4)
	assert.Equal(t, []string{"Date", "Payee", "Amount"}, grid.Headers())
	assert.Equal(t, "Grocer", grid[1][1])
	assert.Empty(t, grid[2])
}

func TestReadGridEmpty(t *testing.T) {
	c := newTestClient(t, &fakeSheets{})
	_, err := c.ReadGrid(context.Background(), "Export!A:C")
	assert.ErrorIs(t, err, importer.ErrEmptyGrid)

	_, err = c.ReadGrid(context.Background(), "  ")
	assert.Error(t, err)
}

func TestAppendTransactionsCreatesYearSheets(t *testing.T) {
	f := &fakeSheets{titles: []string{"2024 Ledger"}}
	c := newTestClient(t, f)

	food := "Food"
	notes := "weekly"
	txs := []core.TransactionView{
		{
			Transaction: core.Transaction{ID: "t1", Payee: "Grocer", Amount: -12500, Date: core.NewDate(2024, 12, 31), Notes: &notes},
			Account:     "Checking",
			Category:    &food,
		},
		{
			Transaction: core.Transaction{ID: "t2", Payee: "Employer", Amount: 2500000, Date: core.NewDate(2025, 1, 1)},
			Account:     "Checking",
		},
	}

	n, err := c.AppendTransactions(context.Background(), txs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, []string{"2025 Ledger"}, f.added)
	assert.Len(t, f.headers, 1)

	rows2024 := f.appended["'2024 Ledger'!A:G"]
	require.Len(t, rows2024, 1)
	assert.Equal(t, []interface{}{"2024-12-31", "Checking", "Food", "Grocer", "-12.5", "weekly", "t1"}, rows2024[0])

	rows2025 := f.appended["'2025 Ledger'!A:G"]
	require.Len(t, rows2025, 1)
	assert.Equal(t, "", rows2025[0][2])
	assert.Equal(t, "2500", rows2025[0][4])

	// known sheets are not re-created
	_, err = c.AppendTransactions(context.Background(), txs[1:])
	require.NoError(t, err)
	assert.Len(t, f.added, 1)
}

func TestAppendTransactionsNoop(t *testing.T) {
	c := &Client{}
	n, err := c.AppendTransactions(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Ledger", 2024, "2024 Ledger"},
		{"2023 Ledger", 2024, "2023 Ledger"},
		{" Ledger ", 2025, "2025 Ledger"},
		{"", 2025, ""},
		{"12345", 2024, "2024 12345"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			assert.Equal(t, tt.want, yearPrefixedName(tt.base, tt.year))
		})
	}
}

func TestQuoteSheet(t *testing.T) {
	assert.Equal(t, "'Bob''s Ledger'", quoteSheet("Bob's Ledger"))
}
