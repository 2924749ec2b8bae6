package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance/internal/core"
	"finance/internal/importer"
	"finance/internal/services"
	"finance/internal/summary"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		id     string
	}{
		{"not found", fmt.Errorf("save transaction: %w", core.ErrNotFound), 404, ErrIDNotFound},
		{"validation", fmt.Errorf("transaction 2: %w", core.ErrEmptyPayee), 400, ErrIDInvalidBody},
		{"range", summary.ErrInvalidRange, 400, ErrIDInvalidBody},
		{"incomplete", fmt.Errorf("%w: amount", importer.ErrIncomplete), 400, ErrIDImportFailed},
		{"too many rows", services.ErrTooManyRows, 400, ErrIDImportFailed},
		{"row errors", &importer.ImportError{Rows: []*importer.RowError{{Line: 2, Err: core.ErrInvalidAmount}}}, 400, ErrIDImportFailed},
		{"body too large", &http.MaxBytesError{Limit: 10}, 400, ErrIDInvalidBody},
		{"classified", missingID(), 400, ErrIDMissingID},
		{"unexpected", errors.New("disk on fire"), 500, ErrIDInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.id, got.ID)
		})
	}
}

func TestImportFailedListsRows(t *testing.T) {
	err := &importer.ImportError{Rows: []*importer.RowError{
		{Line: 2, Err: core.ErrInvalidAmount},
		{Line: 5, Err: core.ErrInvalidDate},
	}}
	got := importFailed(fmt.Errorf("import: %w", err))
	details, ok := got.Details.([]string)
	require.True(t, ok)
	assert.Len(t, details, 2)
}

func TestRespondErrorHidesInternalCause(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	respondError(rr, req, errors.New("secret connection string"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret")

	var env envelopeOut
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.NotNil(t, env.Metadata)
	assert.NotEmpty(t, env.Metadata.RequestID)
	assert.Equal(t, APIVersion, env.Metadata.APIVersion)
	assert.Equal(t, "error", env.Status)
}

func TestRespondWrapsData(t *testing.T) {
	rr := httptest.NewRecorder()
	respond(rr, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, idResponse{ID: "a"})

	assert.JSONEq(t, `{"data":{"id":"a"},"status":"success","success":true}`, rr.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
}
