package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"finance/internal/core"
	"finance/internal/importer"
	ports "finance/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultLedgerSheet is the base name of the ledger mirror sheets. The
// transaction year is prefixed, e.g. "2024 Ledger".
const DefaultLedgerSheet = "Ledger"

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID   string
	LedgerSheet     string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ledgerBase    string

	mu     sync.Mutex
	sheets map[string]bool // titles known to exist
}

// Ensure interface conformance
var (
	_ ports.GridReader   = (*Client)(nil)
	_ ports.LedgerWriter = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, cfg.LedgerSheet), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, ledgerSheet string) *Client {
	ledgerSheet = strings.TrimSpace(ledgerSheet)
	if ledgerSheet == "" {
		ledgerSheet = DefaultLedgerSheet
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		ledgerBase:    ledgerSheet,
		sheets:        make(map[string]bool),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when neither JSON nor file is set.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := strings.TrimSpace(cfg.CredentialsJSON)
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var raw []byte
	switch {
	case credentialsJSON != "":
		raw = []byte(credentialsJSON)
	case credentialsFile != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		raw = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(raw),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(raw),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ReadGrid returns the formatted cell values of an A1 range, header row first.
func (c *Client) ReadGrid(ctx context.Context, rangeA1 string) (importer.RawGrid, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rangeA1 = strings.TrimSpace(rangeA1)
	if rangeA1 == "" {
		return nil, errors.New("missing sheet range")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rangeA1).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read range %q: %w", rangeA1, err)
	}
	grid := toGrid(resp.Values)
	if len(grid) == 0 {
		return nil, importer.ErrEmptyGrid
	}
	slog.DebugContext(ctx, "Read sheet range", "range", rangeA1, "rows", len(grid))
	return grid, nil
}

// AppendTransactions appends one row per transaction to the ledger sheet of
// the transaction's year, creating the sheet with a header row if needed.
func (c *Client) AppendTransactions(ctx context.Context, txs []core.TransactionView) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}

	written := 0
	years, byYear := groupByYear(txs)
	for _, year := range years {
		title := yearPrefixedName(c.ledgerBase, year)
		if err := c.ensureSheet(ctx, title); err != nil {
			return written, err
		}

		batch := byYear[year]
		rows := make([][]interface{}, 0, len(batch))
		for _, tx := range batch {
			rows = append(rows, ledgerRow(tx))
		}
		resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, quoteSheet(title)+"!A:G", &gsheet.ValueRange{Values: rows}).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		if err != nil {
			return written, fmt.Errorf("append to %q: %w", title, err)
		}
		if resp.Updates != nil && resp.Updates.UpdatedRows > 0 {
			written += int(resp.Updates.UpdatedRows)
		} else {
			written += len(rows)
		}
	}
	return written, nil
}

// ensureSheet creates the titled sheet with LedgerHeaders unless it exists.
func (c *Client) ensureSheet(ctx context.Context, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheets[title] {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			c.sheets[sh.Properties.Title] = true
		}
	}
	if c.sheets[title] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}

	header := make([]interface{}, len(ports.LedgerHeaders))
	for i, h := range ports.LedgerHeaders {
		header[i] = h
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quoteSheet(title)+"!A1:G1", &gsheet.ValueRange{Values: [][]interface{}{header}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header to %q: %w", title, err)
	}

	slog.InfoContext(ctx, "Created ledger sheet", "title", title)
	c.sheets[title] = true
	return nil
}
