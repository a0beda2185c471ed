package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"debtster-dashboard/internal/clients"
	"debtster-dashboard/internal/domain"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type ExportStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	SAdd(ctx context.Context, key string, members ...any) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

type ExportFiles interface {
	Save(ctx context.Context, fileName string, data []byte) (string, error)
	GetURL(fileName string) string
}

type ExportNotifier interface {
	NotifyExportProgress(ctx context.Context, userID int64, exportID string, progress float64, stage string) error
	NotifyExportComplete(ctx context.Context, userID int64, exportID, url, filename string) error
	NotifyExportFailed(ctx context.Context, userID int64, exportID, errMsg string) error
}

type CaseLister interface {
	ListCases(ctx context.Context, q CaseListQuery) ([]CaseSummary, error)
}

type ExportStatus struct {
	Key      string    `json:"key"`
	Type     string    `json:"type"`
	UserID   int64     `json:"user_id"`
	Filters  any       `json:"filters"`
	Progress float64   `json:"progress"`
	FileURL  *string   `json:"file_url"`
	Error    *string   `json:"error,omitempty"`
	Created  time.Time `json:"created_at"`
}

type ExportView struct {
	Key       string  `json:"key"`
	Type      string  `json:"type"`
	UserID    int64   `json:"user_id"`
	Progress  float64 `json:"progress"`
	FileURL   *string `json:"file_url"`
	Error     *string `json:"error,omitempty"`
	Filters   any     `json:"filters"`
	CreatedAt string  `json:"created_at"`
}

const (
	exportSetKey     = "export_ids"
	exportKeyPrefix  = "exports:"
	defaultExportTTL = 30 * time.Minute
	progressChunk    = 500
)

const NoActivity = "No activity"

type CaseColumn struct {
	Header string
	Value  func(c CaseSummary) any
}

var caseColumns = map[string]CaseColumn{
	"case_number":    {Header: "Case number", Value: func(c CaseSummary) any { return c.CaseNumber }},
	"debtor":         {Header: "Debtor", Value: func(c CaseSummary) any { return c.DebtorName }},
	"debt_remaining": {Header: "Debt remaining", Value: func(c CaseSummary) any { return float64(c.DebtRemaining) / 100 }},
	"currency":       {Header: "Currency", Value: func(c CaseSummary) any { return c.Currency }},
	"status":         {Header: "Status", Value: func(c CaseSummary) any { return string(c.Status) }},
	"priority":       {Header: "Priority", Value: func(c CaseSummary) any { return string(c.Priority) }},
	"due_date":       {Header: "Due date", Value: func(c CaseSummary) any { return c.DueDate.UTC().Format(time.DateOnly) }},
	"latest_comm": {Header: "Latest activity", Value: func(c CaseSummary) any {
		if c.LatestActivity == nil {
			return NoActivity
		}
		return c.LatestActivity.UTC().Format(time.DateTime)
	}},
}

var defaultCaseColumns = []string{"case_number", "debtor", "debt_remaining", "currency", "status", "due_date", "latest_comm"}

// ExportColumnValid reports whether name is a known case export column.
func ExportColumnValid(name string) bool {
	_, ok := caseColumns[name]
	return ok
}

type ExportService struct {
	cases CaseLister
	store ExportStore
	files ExportFiles
	ws    ExportNotifier
	ttl   time.Duration
	log   *zap.Logger
	now   func() time.Time

	wg sync.WaitGroup
}

func NewExportService(cases CaseLister, store ExportStore, files ExportFiles, ws ExportNotifier, ttl time.Duration, log *zap.Logger) *ExportService {
	if ttl <= 0 {
		ttl = defaultExportTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ExportService{
		cases: cases,
		store: store,
		files: files,
		ws:    ws,
		ttl:   ttl,
		log:   log,
		now:   time.Now,
	}
}

func (s *ExportService) saveExportStatus(ctx context.Context, st *ExportStatus) error {
	if s.store == nil {
		return nil
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, st.Key, string(data), s.ttl); err != nil {
		return err
	}
	return s.store.SAdd(ctx, exportSetKey, st.Key)
}

func (s *ExportService) progress(ctx context.Context, st *ExportStatus, progress float64, stage string) {
	st.Progress = progress
	if err := s.saveExportStatus(ctx, st); err != nil {
		s.log.Warn("save export status failed", zap.String("export_id", st.Key), zap.Error(err))
	}
	if s.ws != nil {
		_ = s.ws.NotifyExportProgress(ctx, st.UserID, st.Key, progress, stage)
	}
}

// StartCasesExport queues an xlsx export of the case list described by q and
// returns its key. Unknown field names are rejected; no fields selects the
// default column set.
func (s *ExportService) StartCasesExport(ctx context.Context, q CaseListQuery, fields []string, userID int64) (string, error) {
	if len(fields) == 0 {
		fields = defaultCaseColumns
	}
	for _, f := range fields {
		if !ExportColumnValid(f) {
			return "", &domain.ValidationError{Field: "fields", Message: fmt.Sprintf("unknown export field %q", f)}
		}
	}

	exportID := exportKeyPrefix + uuid.NewString()
	status := &ExportStatus{
		Key:      exportID,
		Type:     "cases",
		UserID:   userID,
		Filters:  buildCasesFiltersMap(q, fields),
		Progress: 0,
		Created:  s.now(),
	}
	if err := s.saveExportStatus(ctx, status); err != nil {
		return "", fmt.Errorf("start export: %w: %w", domain.ErrStoreUnavailable, err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runCasesExport(context.WithoutCancel(ctx), status, q, fields)
	}()

	return exportID, nil
}

// Wait blocks until every running export has finished.
func (s *ExportService) Wait() {
	s.wg.Wait()
}

func (s *ExportService) runCasesExport(ctx context.Context, status *ExportStatus, q CaseListQuery, fields []string) {
	log := s.log.With(zap.String("export_id", status.Key), zap.Int64("user_id", status.UserID))

	rows, err := s.cases.ListCases(ctx, q)
	if err != nil {
		s.fail(ctx, status, log, "failed to load cases", err)
		return
	}

	cols := make([]CaseColumn, 0, len(fields))
	for _, key := range fields {
		cols = append(cols, caseColumns[key])
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Cases"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		s.fail(ctx, status, log, "failed to build file", err)
		return
	}
	if err := f.SetDocProps(&excelize.DocProperties{Creator: fmt.Sprintf("user_%d", status.UserID)}); err != nil {
		log.Warn("set export doc props failed", zap.Error(err))
	}

	total := len(rows)
	err = writeCaseRows(f, sheet, cols, rows, func(done int) {
		// 100 is reserved for when the file url is ready
		progress := math.Min(math.Round(float64(done)/float64(total)*100), 90)
		s.progress(ctx, status, progress, "generating")
	})
	if err != nil {
		s.fail(ctx, status, log, "failed to build file", err)
		return
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.fail(ctx, status, log, "failed to build file", err)
		return
	}

	fileName := fmt.Sprintf("cases_%s.xlsx", s.now().Format("20060102_150405"))
	s.progress(ctx, status, 95, "uploading")

	saved, err := s.files.Save(ctx, fileName, buf.Bytes())
	if err != nil {
		s.fail(ctx, status, log, "failed to save file", err)
		return
	}

	url := s.files.GetURL(saved)
	status.FileURL = &url
	s.progress(ctx, status, 100, "ready")
	if s.ws != nil {
		_ = s.ws.NotifyExportComplete(ctx, status.UserID, status.Key, url, fileName)
	}
	log.Info("cases export ready", zap.Int("rows", total), zap.String("file", saved))
}

type cellWriter interface {
	SetCellValue(sheet, cell string, value any) error
}

// writeCaseRows writes the header row and one row per case, stopping at the
// first failed cell. progress receives the number of rows written every
// progressChunk rows and after the last one.
func writeCaseRows(w cellWriter, sheet string, cols []CaseColumn, rows []CaseSummary, progress func(done int)) error {
	for i, col := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := w.SetCellValue(sheet, cell, col.Header); err != nil {
			return fmt.Errorf("write header %s: %w", cell, err)
		}
	}

	for i, row := range rows {
		for colIdx, col := range cols {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, i+2)
			if err != nil {
				return err
			}
			if err := w.SetCellValue(sheet, cell, col.Value(row)); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}

		if progress != nil && ((i+1)%progressChunk == 0 || i == len(rows)-1) {
			progress(i + 1)
		}
	}
	return nil
}

func (s *ExportService) fail(ctx context.Context, status *ExportStatus, log *zap.Logger, msg string, err error) {
	log.Error("cases export failed", zap.String("stage", msg), zap.Error(err))
	status.Error = &msg
	status.Progress = 100
	if err := s.saveExportStatus(ctx, status); err != nil {
		log.Warn("save export status failed", zap.Error(err))
	}
	if s.ws != nil {
		_ = s.ws.NotifyExportFailed(ctx, status.UserID, status.Key, msg)
	}
}

func buildCasesFiltersMap(q CaseListQuery, fields []string) map[string]any {
	status := q.Status
	if status == "" {
		status = domain.StatusFilterAll
	}
	m := map[string]any{
		"status": status,
		"search": q.Search,
		"fields": fields,
	}
	if q.Sort.Column != "" {
		m["sort"] = string(q.Sort.Column)
		m["direction"] = string(q.Sort.Direction)
	} else {
		m["sort"] = nil
		m["direction"] = nil
	}
	return m
}

// GetExports lists a user's exports newest first.
func (s *ExportService) GetExports(ctx context.Context, userID int64) ([]ExportView, error) {
	if s.store == nil {
		return nil, errors.New("export store not configured")
	}

	keys, err := s.store.SMembers(ctx, exportSetKey)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w: %w", domain.ErrStoreUnavailable, err)
	}

	var statuses []ExportStatus
	for _, key := range keys {
		st, err := s.loadStatus(ctx, key)
		if err != nil {
			continue
		}
		if st.UserID == userID {
			statuses = append(statuses, *st)
		}
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Created.After(statuses[j].Created)
	})

	out := make([]ExportView, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, s.view(st))
	}
	return out, nil
}

// GetExport returns one export. Exports of other users are reported as not found.
func (s *ExportService) GetExport(ctx context.Context, exportID string, userID int64) (*ExportView, error) {
	if s.store == nil {
		return nil, errors.New("export store not configured")
	}

	st, err := s.loadStatus(ctx, exportID)
	if err != nil {
		return nil, err
	}
	if st.UserID != userID {
		return nil, fmt.Errorf("export %s: %w", exportID, domain.ErrNotFound)
	}

	v := s.view(*st)
	return &v, nil
}

func (s *ExportService) loadStatus(ctx context.Context, key string) (*ExportStatus, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, clients.ErrCacheMiss) {
			return nil, fmt.Errorf("export %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("export %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}

	var st ExportStatus
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("parse export status: %w", err)
	}
	return &st, nil
}

func (s *ExportService) view(st ExportStatus) ExportView {
	return ExportView{
		Key:       st.Key,
		Type:      st.Type,
		UserID:    st.UserID,
		Progress:  st.Progress,
		FileURL:   st.FileURL,
		Error:     st.Error,
		Filters:   st.Filters,
		CreatedAt: humanizeAgo(st.Created, s.now()),
	}
}

func humanizeAgo(t, now time.Time) string {
	if t.After(now) {
		return "just now"
	}

	minutes := int(now.Sub(t).Minutes())
	if minutes < 1 {
		return "just now"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d %s ago", minutes, plural(minutes, "minute", "minutes"))
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%d %s ago", hours, plural(hours, "hour", "hours"))
	}
	days := hours / 24
	if days < 30 {
		return fmt.Sprintf("%d %s ago", days, plural(days, "day", "days"))
	}
	return t.Format("02.01.2006 15:04")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
