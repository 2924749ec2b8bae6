package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finance/internal/core"
	"finance/internal/importer"
	"finance/internal/log"
)

// DefaultMaxImportRows bounds a single import batch.
const DefaultMaxImportRows = 5000

var (
	ErrTooManyRows      = errors.New("too many rows")
	ErrColumnOutOfRange = errors.New("mapped column is not in the header row")
	ErrNothingToImport  = errors.New("no rows to import")
)

// ImportStage names a step of the import pipeline, reported to OnStage.
type ImportStage string

const (
	StageMapping   ImportStage = "mapping"
	StageNormalize ImportStage = "normalizing"
	StagePersist   ImportStage = "saving"
)

// ImportRequest is one import batch.
type ImportRequest struct {
	AccountID  string
	Grid       importer.RawGrid
	Assignment *importer.Assignment
	// Source is recorded in logs: "csv", "ofx", "sheets" or "api".
	Source  string
	OnStage func(ImportStage)
}

type ImportService struct {
	transactions *TransactionService
	maxRows      int
	logger       *log.StructuredLogger
}

func NewImportService(transactions *TransactionService, maxRows int, logger *log.Logger) *ImportService {
	if maxRows <= 0 {
		maxRows = DefaultMaxImportRows
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ImportService{
		transactions: transactions,
		maxRows:      maxRows,
		logger:       log.NewStructuredLogger(logger.WithComponent(log.ComponentImport)),
	}
}

// Import maps the grid and stores every resulting transaction in one batch.
// Any invalid row rejects the whole batch with an *importer.ImportError
// listing each failing row.
func (s *ImportService) Import(ctx context.Context, userID string, req ImportRequest) ([]core.Transaction, error) {
	created, err := s.run(ctx, userID, req)
	s.logger.LogImport(ctx, userID, req.AccountID, req.Source, len(created), err)
	return created, err
}

func (s *ImportService) run(ctx context.Context, userID string, req ImportRequest) ([]core.Transaction, error) {
	stage := func(st ImportStage) {
		if req.OnStage != nil {
			req.OnStage(st)
		}
	}

	if strings.TrimSpace(req.AccountID) == "" {
		return nil, core.ErrMissingAccount
	}
	if len(req.Grid) == 0 {
		return nil, importer.ErrEmptyGrid
	}
	if !req.Assignment.Complete() {
		missing := make([]string, 0, 3)
		for _, f := range req.Assignment.Missing() {
			missing = append(missing, string(f))
		}
		return nil, fmt.Errorf("%w: %s", importer.ErrIncomplete, strings.Join(missing, ", "))
	}
	width := len(req.Grid.Headers())
	for _, col := range req.Assignment.Columns() {
		if col >= width {
			return nil, fmt.Errorf("%w: column %d of %d", ErrColumnOutOfRange, col, width)
		}
	}
	if rows := len(req.Grid.Body()); rows > s.maxRows {
		return nil, fmt.Errorf("%w: %d rows, limit is %d", ErrTooManyRows, rows, s.maxRows)
	}

	stage(StageMapping)
	records, err := importer.BuildRecords(req.Grid, req.Assignment)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNothingToImport
	}

	stage(StageNormalize)
	nts, err := importer.Normalize(records, req.AccountID)
	if err != nil {
		return nil, err
	}

	stage(StagePersist)
	return s.transactions.BulkCreate(ctx, userID, nts)
}
