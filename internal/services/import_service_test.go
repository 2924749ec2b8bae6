package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"finance/internal/core"
	"finance/internal/importer"
)

func importGrid() importer.RawGrid {
	return importer.RawGrid{
		{"Date", "Payee", "Amount", "Memo"},
		{"2024-01-01 10:00:00", "Grocer", "-12.5", "weekly"},
		{"2024-01-02 11:00:00", "Employer", "2500", ""},
	}
}

func completeAssignment(t *testing.T) *importer.Assignment {
	t.Helper()
	a, err := importer.ParseAssignment(map[string]string{"0": "date", "1": "payee", "2": "amount", "3": "notes"})
	require.NoError(t, err)
	return a
}

func TestImportStoresAllRows(t *testing.T) {
	store := new(mockStore)
	pub := new(mockPublisher)
	svc := NewImportService(NewTransactionService(store, pub, nil), 0, nil)

	notes := "weekly"
	want := []core.NewTransaction{
		{AccountID: "acc", Payee: "Grocer", Amount: -12500, Date: core.NewDate(2024, 1, 1), Notes: &notes},
		{AccountID: "acc", Payee: "Employer", Amount: 2500000, Date: core.NewDate(2024, 1, 2)},
	}
	store.On("BulkCreateTransactions", mock.Anything, "alice", want).
		Return([]core.Transaction{{ID: "t1"}, {ID: "t2"}}, nil)
	pub.On("PublishTransactionEvent", mock.Anything, eventMatching("created", "alice", "t1", "t2")).Return(nil)

	var stages []ImportStage
	created, err := svc.Import(context.Background(), "alice", ImportRequest{
		AccountID:  "acc",
		Grid:       importGrid(),
		Assignment: completeAssignment(t),
		Source:     "api",
		OnStage:    func(s ImportStage) { stages = append(stages, s) },
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Equal(t, []ImportStage{StageMapping, StageNormalize, StagePersist}, stages)
	store.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestImportRejections(t *testing.T) {
	incomplete := importer.NewAssignment()
	incomplete.Assign(0, importer.FieldDate)

	outOfRange := completeAssignment(t)
	outOfRange.Assign(7, importer.FieldNotes)

	badGrid := importGrid()
	badGrid[2][2] = "lots"

	tests := []struct {
		name    string
		req     ImportRequest
		maxRows int
		wantErr error
	}{
		{"missing account", ImportRequest{Grid: importGrid(), Assignment: completeAssignment(t)}, 0, core.ErrMissingAccount},
		{"empty grid", ImportRequest{AccountID: "acc", Assignment: completeAssignment(t)}, 0, importer.ErrEmptyGrid},
		{"incomplete mapping", ImportRequest{AccountID: "acc", Grid: importGrid(), Assignment: incomplete}, 0, importer.ErrIncomplete},
		{"column out of range", ImportRequest{AccountID: "acc", Grid: importGrid(), Assignment: outOfRange}, 0, ErrColumnOutOfRange},
		{"too many rows", ImportRequest{AccountID: "acc", Grid: importGrid(), Assignment: completeAssignment(t)}, 1, ErrTooManyRows},
		{"header only", ImportRequest{AccountID: "acc", Grid: importGrid()[:1], Assignment: completeAssignment(t)}, 0, ErrNothingToImport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockStore)
			svc := NewImportService(NewTransactionService(store, nil, nil), tt.maxRows, nil)
			_, err := svc.Import(context.Background(), "alice", tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			store.AssertNotCalled(t, "BulkCreateTransactions", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("bad cell aborts batch", func(t *testing.T) {
		store := new(mockStore)
		svc := NewImportService(NewTransactionService(store, nil, nil), 0, nil)
		_, err := svc.Import(context.Background(), "alice", ImportRequest{AccountID: "acc", Grid: badGrid, Assignment: completeAssignment(t)})
		var ie *importer.ImportError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, 3, ie.Rows[0].Line)
		store.AssertNotCalled(t, "BulkCreateTransactions", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestImportForeignAccount(t *testing.T) {
	store := new(mockStore)
	svc := NewImportService(NewTransactionService(store, nil, nil), 0, nil)
	store.On("BulkCreateTransactions", mock.Anything, "alice", mock.Anything).Return(nil, core.ErrNotFound)

	_, err := svc.Import(context.Background(), "alice", ImportRequest{AccountID: "bobs", Grid: importGrid(), Assignment: completeAssignment(t)})
	assert.ErrorIs(t, err, core.ErrNotFound)
}
