// Package backend assembles the storage, broker, spreadsheet and service
// layers from the application config.
package backend

import (
	"context"
	"errors"
	"fmt"

	"finance/internal/amqp"
	"finance/internal/cache"
	"finance/internal/config"
	"finance/internal/log"
	"finance/internal/services"
	"finance/internal/sheets"
	gsheet "finance/internal/sheets/google"
	"finance/internal/storage"
	"finance/internal/summary"
)

// Backend holds the wired components shared by the binaries.
type Backend struct {
	Repo         *storage.SQLiteRepository
	Publisher    *amqp.Client   // nil when AMQP is disabled or unreachable
	Sheets       *gsheet.Client // nil when no spreadsheet is configured
	Transactions *services.TransactionService
	Imports      *services.ImportService
	Summary      *summary.Service
	SummaryCache *cache.LRUCache[summary.Summary] // nil when SUMMARY_CACHE_TTL is zero
}

// Options toggles the optional integrations per binary.
type Options struct {
	// Publish connects to AMQP_URL (when set) to publish transaction events.
	Publish bool
	// Sheets creates the Google Sheets client (when a spreadsheet is set).
	Sheets bool
}

// New opens the database and builds the services. The broker is optional:
// a connection failure is logged and publishing is disabled.
func New(ctx context.Context, cfg *config.Config, opts Options, logger *log.Logger) (*Backend, error) {
	if cfg == nil {
		return nil, errors.New("app config is nil")
	}
	if logger == nil {
		logger = log.Discard()
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	b := &Backend{Repo: repo}

	var publisher services.EventPublisher
	if opts.Publish && cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
			b.Publisher = client
			publisher = client
		}
	}

	if opts.Sheets && cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			LedgerSheet:     cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		logger.Info("Google Sheets client initialized", log.FieldSpreadsheet, cfg.GoogleSpreadsheetID)
		b.Sheets = client
	}

	b.Transactions = services.NewTransactionService(repo, publisher, logger)
	b.Imports = services.NewImportService(b.Transactions, cfg.MaxImportRows, logger)
	summaryOpts := []summary.Option{
		summary.WithTimeout(cfg.SummaryTimeout),
		summary.WithLogger(logger),
	}
	if cfg.SummaryCacheTTL > 0 {
		b.SummaryCache = cache.NewLRUCache[summary.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
		summaryOpts = append(summaryOpts, summary.WithCache(b.SummaryCache))
	}
	b.Summary = summary.NewService(repo, summaryOpts...)

	logger.Info("Initialized backend",
		"db_path", cfg.SQLiteDBPath,
		"amqp_enabled", b.Publisher != nil,
		"sheets_enabled", b.Sheets != nil,
		"summary_cache", b.SummaryCache != nil)
	return b, nil
}

// GridReader returns the spreadsheet import source, or nil when disabled.
func (b *Backend) GridReader() sheets.GridReader {
	if b.Sheets == nil {
		return nil
	}
	return b.Sheets
}

// Close releases the broker connection and the database.
func (b *Backend) Close() error {
	var errs []error
	if b.Publisher != nil {
		if err := b.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close amqp: %w", err))
		}
	}
	if b.Repo != nil {
		if err := b.Repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sqlite: %w", err))
		}
	}
	return errors.Join(errs...)
}
