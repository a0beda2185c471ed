package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"debtster-dashboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func loadExportStatus(t *testing.T, store *fakeExportStore, key string) ExportStatus {
	t.Helper()
	raw, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	var st ExportStatus
	require.NoError(t, json.Unmarshal([]byte(raw), &st))
	return st
}

func TestStartCasesExport_BuildsWorkbook(t *testing.T) {
	cases := newTestCaseService(&fakeCaseRepo{cases: sampleCases()}, &fakeCommRepo{})
	store := newFakeExportStore()
	files := &fakeFiles{}
	ws := &fakeExportNotifier{}
	svc := NewExportService(cases, store, files, ws, time.Minute, nil)

	key, err := svc.StartCasesExport(context.Background(), CaseListQuery{
		Status: string(domain.StatusActive),
		Sort:   SortSpec{Column: SortCaseNumber, Direction: SortAsc},
	}, []string{"case_number", "debtor", "latest_comm"}, 42)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "exports:"))

	svc.Wait()

	st := loadExportStatus(t, store, key)
	assert.Equal(t, float64(100), st.Progress)
	require.NotNil(t, st.FileURL)
	assert.Contains(t, *st.FileURL, "cases_")
	assert.Nil(t, st.Error)
	assert.Equal(t, []string{"generating", "uploading", "ready", "complete"}, ws.stages)

	require.Len(t, files.saved, 1)
	var data []byte
	for _, d := range files.saved {
		data = d
	}
	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("Cases")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Case number", "Debtor", "Latest activity"},
		{"CASE-002", "N/A", "No activity"},
		{"CASE-003", "Zed Smith", "No activity"},
	}, rows)
}

func TestStartCasesExport_UnknownField(t *testing.T) {
	svc := NewExportService(&fakeCaseLister{}, newFakeExportStore(), &fakeFiles{}, nil, 0, nil)
	_, err := svc.StartCasesExport(context.Background(), CaseListQuery{}, []string{"ssn"}, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type fakeCaseLister struct{ err error }

func (f *fakeCaseLister) ListCases(context.Context, CaseListQuery) ([]CaseSummary, error) {
	return nil, f.err
}

func TestStartCasesExport_FailureIsRecorded(t *testing.T) {
	store := newFakeExportStore()
	ws := &fakeExportNotifier{}
	svc := NewExportService(&fakeCaseLister{err: errStoreDown}, store, &fakeFiles{}, ws, 0, nil)

	key, err := svc.StartCasesExport(context.Background(), CaseListQuery{}, nil, 1)
	require.NoError(t, err)
	svc.Wait()

	st := loadExportStatus(t, store, key)
	require.NotNil(t, st.Error)
	assert.Nil(t, st.FileURL)
	assert.Equal(t, []string{"failed"}, ws.stages)
}

func TestStartCasesExport_SaveFailure(t *testing.T) {
	store := newFakeExportStore()
	svc := NewExportService(&fakeCaseLister{}, store, &fakeFiles{err: errors.New("disk full")}, nil, 0, nil)

	key, err := svc.StartCasesExport(context.Background(), CaseListQuery{}, nil, 1)
	require.NoError(t, err)
	svc.Wait()

	st := loadExportStatus(t, store, key)
	require.NotNil(t, st.Error)
	assert.Equal(t, "failed to save file", *st.Error)
}

type failingCells struct {
	failAt string
	cells  []string
}

func (f *failingCells) SetCellValue(_, cell string, _ any) error {
	if cell == f.failAt {
		return errors.New("cell rejected")
	}
	f.cells = append(f.cells, cell)
	return nil
}

func TestWriteCaseRows_StopsAtFirstError(t *testing.T) {
	cols := []CaseColumn{caseColumns["case_number"], caseColumns["debtor"]}
	rows := []CaseSummary{{CaseNumber: "CASE-001"}, {CaseNumber: "CASE-002"}}

	w := &failingCells{failAt: "B2"}
	var progressCalls int
	err := writeCaseRows(w, "Cases", cols, rows, func(int) { progressCalls++ })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "B2")
	assert.Equal(t, []string{"A1", "B1", "A2"}, w.cells)
	assert.Zero(t, progressCalls)

	w = &failingCells{}
	var done []int
	require.NoError(t, writeCaseRows(w, "Cases", cols, rows, func(n int) { done = append(done, n) }))
	assert.Len(t, w.cells, 6)
	assert.Equal(t, []int{2}, done)
}

func TestGetExports_OnlyOwnNewestFirst(t *testing.T) {
	store := newFakeExportStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewExportService(&fakeCaseLister{}, store, &fakeFiles{}, nil, 0, nil)
	svc.now = func() time.Time { return now }

	for _, st := range []ExportStatus{
		{Key: "exports:old", UserID: 1, Created: now.Add(-2 * time.Hour)},
		{Key: "exports:new", UserID: 1, Created: now.Add(-5 * time.Minute)},
		{Key: "exports:other", UserID: 2, Created: now},
	} {
		st := st
		require.NoError(t, svc.saveExportStatus(context.Background(), &st))
	}

	views, err := svc.GetExports(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "exports:new", views[0].Key)
	assert.Equal(t, "5 minutes ago", views[0].CreatedAt)
	assert.Equal(t, "2 hours ago", views[1].CreatedAt)

	_, err = svc.GetExport(context.Background(), "exports:other", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetExport(context.Background(), "exports:missing", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	v, err := svc.GetExport(context.Background(), "exports:new", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.UserID)
}

func TestHumanizeAgo(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "just now", humanizeAgo(now.Add(time.Minute), now))
	assert.Equal(t, "just now", humanizeAgo(now.Add(-30*time.Second), now))
	assert.Equal(t, "1 minute ago", humanizeAgo(now.Add(-time.Minute), now))
	assert.Equal(t, "1 day ago", humanizeAgo(now.Add(-25*time.Hour), now))
	assert.Equal(t, "01.04.2024 12:00", humanizeAgo(now.AddDate(0, -2, 0), now))
}

func TestListPayments(t *testing.T) {
	repo := &fakePayments{recent: []domain.Payment{
		{ID: "p1", DebtorFirstName: strp("John"), DebtorLastName: strp("Doe")},
		{ID: "p2"},
	}}
	svc := NewPaymentService(repo)

	views, err := svc.ListPayments(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "John Doe", views[0].DebtorName)
	assert.Equal(t, domain.NotAvailable, views[1].DebtorName)

	_, err = svc.ListPayments(context.Background(), 10_000)
	require.NoError(t, err)
	assert.Equal(t, []int{defaultPaymentsLimit, maxPaymentsLimit}, repo.limits)
}
