package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"debtster-dashboard/internal/domain"
	"debtster-dashboard/internal/service"
	"debtster-dashboard/internal/transport/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	ErrorCode int             `json:"error_code"`
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

type fakeCases struct {
	rows      []service.CaseSummary
	detail    *service.CaseDetail
	err       error
	lastQuery service.CaseListQuery
	changedBy int64
}

func (f *fakeCases) ParseStatusFilter(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch s {
	case "", domain.StatusFilterAll:
		return domain.StatusFilterAll, nil
	case string(domain.StatusActive), string(domain.StatusClosed), string(domain.StatusSuspended):
		return s, nil
	}
	return "", &domain.ValidationError{Field: "status", Message: fmt.Sprintf("unsupported status %q", raw)}
}

func (f *fakeCases) ListCases(_ context.Context, q service.CaseListQuery) ([]service.CaseSummary, error) {
	f.lastQuery = q
	return f.rows, f.err
}

func (f *fakeCases) GetCaseDetail(context.Context, string) (*service.CaseDetail, error) {
	return f.detail, f.err
}

func (f *fakeCases) ChangeStatus(_ context.Context, caseID string, to domain.CaseStatus, changedBy int64) (*service.StatusChange, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.changedBy = changedBy
	return &service.StatusChange{CaseID: caseID, From: domain.StatusActive, To: to}, nil
}

func (f *fakeCases) AddCommunication(_ context.Context, caseID string, channel domain.CommChannel, content string) (*domain.Communication, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Communication{ID: "c1", CaseID: caseID, Channel: channel, Content: content}, nil
}

func (f *fakeCases) ListDisputes(context.Context) ([]service.Dispute, error) {
	return nil, f.err
}

type fakePaymentFeed struct{ limit int }

func (f *fakePaymentFeed) ListPayments(_ context.Context, limit int) ([]service.PaymentView, error) {
	f.limit = limit
	return nil, nil
}

type fakeAttachments struct {
	names       []string
	description *string
}

func (f *fakeAttachments) UploadAttachments(_ context.Context, caseID string, files []service.UploadFile) (*service.UploadResult, error) {
	res := &service.UploadResult{}
	for _, file := range files {
		body, _ := io.ReadAll(file.Body)
		f.names = append(f.names, file.Name+":"+string(body))
		f.description = file.Description
		res.Uploaded = append(res.Uploaded, domain.Attachment{ID: file.Name, CaseID: caseID, FileName: file.Name})
	}
	return res, nil
}

func (f *fakeAttachments) AttachmentURL(context.Context, string, string) (string, error) {
	return "https://s3.local/signed", nil
}

type fakeExporter struct {
	fields []string
	q      service.CaseListQuery
	userID int64
}

func (f *fakeExporter) StartCasesExport(_ context.Context, q service.CaseListQuery, fields []string, userID int64) (string, error) {
	f.q, f.fields, f.userID = q, fields, userID
	return "exports:abc", nil
}

func withUser(id int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), domain.Session{UserID: id})))
		})
	}
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestListCases(t *testing.T) {
	latest := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	cases := &fakeCases{rows: []service.CaseSummary{
		{ID: "1", CaseNumber: "CASE-001", DebtorName: "Amy Jones", DueDate: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), LatestActivity: &latest},
		{ID: "2", CaseNumber: "CASE-002", DebtorName: domain.NotAvailable},
	}}
	router := NewHandler(Services{Cases: cases}, nil).InitRouter()

	rec, env := do(t, router, httptest.NewRequest(http.MethodGet, "/cases?status=active&search=amy&sort=debtor&direction=desc", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, string(domain.StatusActive), cases.lastQuery.Status)
	assert.Equal(t, "amy", cases.lastQuery.Search)
	assert.Equal(t, service.SortSpec{Column: service.SortDebtor, Direction: service.SortDesc}, cases.lastQuery.Sort)

	var rows []caseRowDTO
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-06-30", rows[0].DueDate)
	assert.Equal(t, "2024-05-02T10:00:00Z", rows[0].LatestActivity)
	assert.Equal(t, service.NoActivity, rows[1].LatestActivity)
}

func TestListCases_EmptyIsArray(t *testing.T) {
	router := NewHandler(Services{Cases: &fakeCases{}}, nil).InitRouter()

	rec, env := do(t, router, httptest.NewRequest(http.MethodGet, "/cases", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestListCases_BadParams(t *testing.T) {
	router := NewHandler(Services{Cases: &fakeCases{}}, nil).InitRouter()

	for _, target := range []string{
		"/cases?status=archived",
		"/cases?sort=ssn",
		"/cases?sort=status&direction=up",
		"/cases?direction=asc",
	} {
		rec, env := do(t, router, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "error", env.Status, target)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", fmt.Errorf("case detail x: %w", domain.ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("change status: %w", domain.ErrConflict), http.StatusConflict},
		{"store down", fmt.Errorf("get case: %w: %w", domain.ErrStoreUnavailable, io.ErrUnexpectedEOF), http.StatusServiceUnavailable},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"unexpected", io.ErrClosedPipe, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewHandler(Services{Cases: &fakeCases{err: tt.err}}, nil).InitRouter()
			rec, env := do(t, router, httptest.NewRequest(http.MethodGet, "/cases/x", nil))
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.code, env.ErrorCode)
		})
	}
}

func TestGetCase_Detail(t *testing.T) {
	reason := "PAYMENT_ALREADY_MADE"
	cases := &fakeCases{detail: &service.CaseDetail{
		Case:    domain.Case{ID: "1", CaseNumber: "CASE-001", Status: domain.StatusSuspended, DisputeReason: &reason},
		Warning: &service.CaseWarning{Message: "This case is suspended and under dispute", DisputeReason: "payment already made"},
	}}
	router := NewHandler(Services{Cases: cases}, nil).InitRouter()

	rec, env := do(t, router, httptest.NewRequest(http.MethodGet, "/cases/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var detail caseDetailDTO
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Nil(t, detail.Debtor)
	assert.Empty(t, detail.Communications)
	assert.NotNil(t, detail.Communications)
	require.NotNil(t, detail.Warning)
	assert.Equal(t, "payment already made", detail.Warning.DisputeReason)
}

func TestChangeStatus(t *testing.T) {
	cases := &fakeCases{}
	router := NewHandler(Services{Cases: cases}, nil).InitRouterWithAuth(withUser(7))

	req := httptest.NewRequest(http.MethodPatch, "/cases/1/status", strings.NewReader(`{"status":"closed"}`))
	rec, env := do(t, router, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"case_id":"1","from":"ACTIVE","to":"CLOSED"}`, string(env.Data))
	assert.Equal(t, int64(7), cases.changedBy)

	req = httptest.NewRequest(http.MethodPatch, "/cases/1/status", strings.NewReader(`{}`))
	rec, _ = do(t, router, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangeStatus_RejectedTransition(t *testing.T) {
	cases := &fakeCases{err: &domain.ValidationError{Field: "status", Message: "transition CLOSED -> ACTIVE is not allowed"}}
	router := NewHandler(Services{Cases: cases}, nil).InitRouterWithAuth(withUser(7))

	req := httptest.NewRequest(http.MethodPatch, "/cases/1/status", strings.NewReader(`{"status":"ACTIVE"}`))
	rec, env := do(t, router, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"field":"status"}`, string(env.Data))
}

func TestChangeStatus_Conflict(t *testing.T) {
	cases := &fakeCases{err: fmt.Errorf("change status: update case status 1: %w", domain.ErrConflict)}
	router := NewHandler(Services{Cases: cases}, nil).InitRouterWithAuth(withUser(7))

	req := httptest.NewRequest(http.MethodPatch, "/cases/1/status", strings.NewReader(`{"status":"ACTIVE"}`))
	rec, env := do(t, router, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 409, env.ErrorCode)
}

func TestChangeStatus_NoSession(t *testing.T) {
	router := NewHandler(Services{Cases: &fakeCases{}}, nil).InitRouter()

	req := httptest.NewRequest(http.MethodPatch, "/cases/1/status", strings.NewReader(`{"status":"ACTIVE"}`))
	rec, _ := do(t, router, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddCommunication(t *testing.T) {
	router := NewHandler(Services{Cases: &fakeCases{}}, nil).InitRouter()

	req := httptest.NewRequest(http.MethodPost, "/cases/1/communications", strings.NewReader(`{"channel":"SMS","content":"hello"}`))
	rec, env := do(t, router, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var c communicationDTO
	require.NoError(t, json.Unmarshal(env.Data, &c))
	assert.Equal(t, "sms", c.Channel)
	assert.Equal(t, "hello", c.Content)

	req = httptest.NewRequest(http.MethodPost, "/cases/1/communications", strings.NewReader(`{`))
	rec, _ = do(t, router, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPayments_Limit(t *testing.T) {
	payments := &fakePaymentFeed{}
	router := NewHandler(Services{Payments: payments}, nil).InitRouter()

	rec, env := do(t, router, httptest.NewRequest(http.MethodGet, "/payments?limit=20", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, payments.limit)
	assert.JSONEq(t, `[]`, string(env.Data))

	rec, _ = do(t, router, httptest.NewRequest(http.MethodGet, "/payments?limit=ten", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadAttachments(t *testing.T) {
	attachments := &fakeAttachments{}
	router := NewHandler(Services{Cases: &fakeCases{}, Attachments: attachments}, nil).InitRouter()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range []string{"a.pdf", "b.png"} {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("data-" + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("description", "signed contract"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/cases/1/attachments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec, env := do(t, router, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, []string{"a.pdf:data-a.pdf", "b.png:data-b.png"}, attachments.names)
	require.NotNil(t, attachments.description)
	assert.Equal(t, "signed contract", *attachments.description)

	var res uploadResultDTO
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Len(t, res.Uploaded, 2)
	assert.Empty(t, res.Failed)
}

func TestUploadAttachments_NotMultipart(t *testing.T) {
	router := NewHandler(Services{Cases: &fakeCases{}, Attachments: &fakeAttachments{}}, nil).InitRouter()

	req := httptest.NewRequest(http.MethodPost, "/cases/1/attachments", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec, _ := do(t, router, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportCases(t *testing.T) {
	exporter := &fakeExporter{}
	router := NewHandler(Services{Cases: &fakeCases{}, Exporter: exporter}, nil).InitRouterWithAuth(withUser(3))

	req := httptest.NewRequest(http.MethodPost, "/export/cases",
		strings.NewReader(`{"fields":["case_number","debtor"],"status":"SUSPENDED","sort":"due_date"}`))
	rec, env := do(t, router, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"export_id":"exports:abc"}`, string(env.Data))

	assert.Equal(t, []string{"case_number", "debtor"}, exporter.fields)
	assert.Equal(t, string(domain.StatusSuspended), exporter.q.Status)
	assert.Equal(t, service.SortSpec{Column: service.SortDueDate, Direction: service.SortAsc}, exporter.q.Sort)
	assert.Equal(t, int64(3), exporter.userID)

	req = httptest.NewRequest(http.MethodPost, "/export/cases", strings.NewReader(`{"fields":["ssn"]}`))
	rec, _ = do(t, router, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecoveryTrend_BadGranularity(t *testing.T) {
	router := NewHandler(Services{Analytics: service.NewAnalyticsService(nil, nil, nil, 0)}, nil).InitRouter()

	rec, _ := do(t, router, httptest.NewRequest(http.MethodGet, "/analytics/trends?granularity=week", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-06-30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("2024-06-30T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 12, d.Hour())

	_, err = parseDate("30/06/2024")
	assert.Error(t, err)
}
