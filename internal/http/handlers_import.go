package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"finance/internal/core"
	"finance/internal/importer"
	"finance/internal/services"
)

type sheetRangeRequest struct {
	SheetRange string `json:"sheetRange"`
}

type previewResponse struct {
	Format  string     `json:"format"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type importRequest struct {
	AccountID string `json:"accountId"`
	// Grid holds the header row followed by the body rows. SheetRange is
	// read instead when Grid is empty.
	Grid       importer.RawGrid  `json:"grid"`
	SheetRange string            `json:"sheetRange"`
	Columns    map[string]string `json:"columns"`
}

// handleImportPreview parses an uploaded CSV/OFX file or a spreadsheet range
// and returns the grid so the client can map its columns. Nothing is stored.
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	var (
		grid   importer.RawGrid
		format string
		err    error
	)
	if isJSON(r) {
		var req sheetRangeRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
		format = "sheets"
		grid, err = s.readSheet(r, req.SheetRange)
	} else {
		grid, format, err = readUpload(r)
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	if len(grid) == 0 {
		respondError(w, r, importFailed(importer.ErrEmptyGrid))
		return
	}

	rows := grid.Body()
	if rows == nil {
		rows = [][]string{}
	}
	respond(w, r, http.StatusOK, previewResponse{
		Format:  format,
		Headers: grid.Headers(),
		Rows:    rows,
	})
}

// handleImport maps the grid with the submitted column assignment and stores
// every row in one batch. Any invalid row rejects the batch.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	assignment, err := importer.ParseAssignment(req.Columns)
	if err != nil {
		respondError(w, r, importFailed(err))
		return
	}

	source := "api"
	grid := req.Grid
	if len(grid) == 0 && strings.TrimSpace(req.SheetRange) != "" {
		source = "sheets"
		if grid, err = s.readSheet(r, req.SheetRange); err != nil {
			respondError(w, r, err)
			return
		}
	}

	s.metrics.importsTotal.Add(1)
	created, err := s.deps.Imports.Import(r.Context(), userID(r), services.ImportRequest{
		AccountID:  req.AccountID,
		Grid:       grid,
		Assignment: assignment,
		Source:     source,
	})
	if err != nil {
		s.metrics.importsFailed.Add(1)
		respondError(w, r, err)
		return
	}
	if created == nil {
		created = []core.Transaction{}
	}
	s.metrics.transactionsCreated.Add(int64(len(created)))
	respond(w, r, http.StatusOK, created)
}

// readSheet reads an A1 range from the configured spreadsheet. An unknown
// range is an import failure, not a missing resource.
func (s *Server) readSheet(r *http.Request, rangeA1 string) (importer.RawGrid, error) {
	if s.deps.Sheets == nil {
		return nil, importFailed(errors.New("spreadsheet import is not configured"))
	}
	rangeA1 = strings.TrimSpace(rangeA1)
	if rangeA1 == "" {
		return nil, invalidBody(errors.New("sheetRange is required"))
	}
	grid, err := s.deps.Sheets.ReadGrid(r.Context(), rangeA1)
	switch {
	case err == nil:
		return grid, nil
	case errors.Is(err, core.ErrNotFound), errors.Is(err, importer.ErrEmptyGrid):
		return nil, importFailed(err)
	default:
		return nil, fmt.Errorf("read sheet range %q: %w", rangeA1, err)
	}
}
