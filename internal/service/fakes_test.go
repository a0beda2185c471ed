package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"debtster-dashboard/internal/clients"
	"debtster-dashboard/internal/domain"
	"debtster-dashboard/internal/repository"
)

var errStoreDown = fmt.Errorf("connection refused: %w", domain.ErrStoreUnavailable)

type fakeCaseRepo struct {
	mu      sync.Mutex
	cases   []domain.Case
	listErr error
	getErr  error
	updated map[string]domain.CaseStatus
	filters []repository.CasesFilter

	// raced is applied to the stored case right before the next update,
	// as if another agent changed it first.
	raced map[string]domain.CaseStatus
}

func (f *fakeCaseRepo) List(_ context.Context, filter repository.CasesFilter) ([]domain.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []domain.Case{}
	for _, c := range f.cases {
		if filter.Status == nil || c.Status == *filter.Status {
			out = append(out, c)
		}
	}
	if filter.NewestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (f *fakeCaseRepo) GetByID(_ context.Context, id string) (*domain.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, c := range f.cases {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get case %s: %w", id, domain.ErrNotFound)
}

func (f *fakeCaseRepo) UpdateStatus(_ context.Context, id string, from, to domain.CaseStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updated == nil {
		f.updated = map[string]domain.CaseStatus{}
	}
	for i := range f.cases {
		if f.cases[i].ID != id {
			continue
		}
		if s, ok := f.raced[id]; ok {
			f.cases[i].Status = s
			delete(f.raced, id)
		}
		if f.cases[i].Status != from {
			return fmt.Errorf("update case status %s: %w", id, domain.ErrConflict)
		}
		f.cases[i].Status = to
		f.updated[id] = to
		return nil
	}
	return domain.ErrNotFound
}

type fakeCommRepo struct {
	mu        sync.Mutex
	comms     []domain.Communication
	latestErr error
	calls     [][]string
	created   []domain.Communication
}

func (f *fakeCommRepo) ListByCase(_ context.Context, caseID string) ([]domain.Communication, error) {
	out := []domain.Communication{}
	for _, c := range f.comms {
		if c.CaseID == caseID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCommRepo) LatestByCases(_ context.Context, ids []string) (map[string]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), ids...))
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := map[string]time.Time{}
	for _, c := range f.comms {
		if !want[c.CaseID] {
			continue
		}
		if at, ok := out[c.CaseID]; !ok || c.CreatedAt.After(at) {
			out[c.CaseID] = c.CreatedAt
		}
	}
	return out, nil
}

func (f *fakeCommRepo) Create(_ context.Context, c *domain.Communication) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = fmt.Sprintf("comm-%d", len(f.created)+1)
	c.CreatedAt = time.Now()
	f.created = append(f.created, *c)
	return nil
}

type fakeAttachmentRepo struct {
	mu        sync.Mutex
	items     []domain.Attachment
	createErr map[string]error
}

func (f *fakeAttachmentRepo) ListByCase(_ context.Context, caseID string) ([]domain.Attachment, error) {
	var out []domain.Attachment
	for _, a := range f.items {
		if a.CaseID == caseID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttachmentRepo) Get(_ context.Context, caseID, id string) (*domain.Attachment, error) {
	for _, a := range f.items {
		if a.CaseID == caseID && a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAttachmentRepo) Create(_ context.Context, a *domain.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createErr[a.FileName]; err != nil {
		return err
	}
	a.ID = fmt.Sprintf("att-%d", len(f.items)+1)
	f.items = append(f.items, *a)
	return nil
}

type fakeObjectStorage struct {
	failUpload map[string]bool
	uploaded   []string
	removed    []string
	// afterUpload runs after each stored object.
	afterUpload func()
}

func (f *fakeObjectStorage) Upload(_ context.Context, path string, r io.Reader, _ int64, _ string) (string, error) {
	for name := range f.failUpload {
		if len(path) >= len(name) && path[len(path)-len(name):] == name {
			return "", errors.New("bucket unavailable")
		}
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	f.uploaded = append(f.uploaded, path)
	if f.afterUpload != nil {
		f.afterUpload()
	}
	return path, nil
}

func (f *fakeObjectStorage) GetTemporaryURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://s3.local/" + key + "?ttl=" + ttl.String(), nil
}

func (f *fakeObjectStorage) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) NotifyCaseStatusChanged(_ context.Context, caseID, from, to string, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, caseID+":"+from+"->"+to)
	return nil
}

type fakeInvalidator struct{ calls int }

func (f *fakeInvalidator) Invalidate(context.Context) error {
	f.calls++
	return nil
}

// fakeCache stores JSON like the redis client does.
type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	readErr error
	sets    int
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (f *fakeCache) GetJSON(_ context.Context, key string, dst any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return f.readErr
	}
	raw, ok := f.data[key]
	if !ok {
		return clients.ErrCacheMiss
	}
	return json.Unmarshal(raw, dst)
}

func (f *fakeCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.data[key] = raw
	f.sets++
	return nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
		f.deleted = append(f.deleted, k)
	}
	return nil
}

type fakeAnalyticsRepo struct {
	totals    repository.CaseTotals
	aging     []repository.AgingRow
	err       error
	totalsHit int
}

func (f *fakeAnalyticsRepo) CaseTotals(context.Context) (repository.CaseTotals, error) {
	f.totalsHit++
	if f.err != nil {
		return repository.CaseTotals{}, f.err
	}
	return f.totals, nil
}

func (f *fakeAnalyticsRepo) ActiveAging(context.Context) ([]repository.AgingRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.aging, nil
}

type fakePayments struct {
	completed []domain.Payment
	recent    []domain.Payment
	err       error
	limits    []int
}

func (f *fakePayments) ListCompleted(context.Context) ([]domain.Payment, error) {
	return f.completed, f.err
}

func (f *fakePayments) ListRecent(_ context.Context, limit int) ([]domain.Payment, error) {
	f.limits = append(f.limits, limit)
	return f.recent, f.err
}

type fakeDebtorRepo struct {
	byPhone map[string]domain.Debtor
	created int
}

func (f *fakeDebtorRepo) FindByPhone(_ context.Context, phone string) (*domain.Debtor, error) {
	if d, ok := f.byPhone[phone]; ok {
		return &d, nil
	}
	return nil, fmt.Errorf("find debtor by phone: %w", domain.ErrNotFound)
}

func (f *fakeDebtorRepo) CreateWithCase(_ context.Context, d *domain.Debtor, c *domain.Case) error {
	f.created++
	d.ID = "debtor-new"
	c.ID = "case-new"
	c.DebtorID = &d.ID
	return nil
}

type fakeExportStore struct {
	mu   sync.Mutex
	data map[string]string
	sets map[string]map[string]bool
}

func newFakeExportStore() *fakeExportStore {
	return &fakeExportStore{data: map[string]string{}, sets: map[string]map[string]bool{}}
}

func (f *fakeExportStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeExportStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", clients.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeExportStore) SAdd(_ context.Context, key string, members ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sets[key] == nil {
		f.sets[key] = map[string]bool{}
	}
	for _, m := range members {
		f.sets[key][fmt.Sprint(m)] = true
	}
	return nil
}

func (f *fakeExportStore) SMembers(_ context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

type fakeFiles struct {
	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func (f *fakeFiles) Save(_ context.Context, name string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	stored := "abc_" + name
	f.saved[stored] = data
	return stored, nil
}

func (f *fakeFiles) GetURL(name string) string {
	return "http://files.local/files/" + name
}

type fakeExportNotifier struct {
	mu     sync.Mutex
	stages []string
}

func (f *fakeExportNotifier) NotifyExportProgress(_ context.Context, _ int64, _ string, _ float64, stage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages = append(f.stages, stage)
	return nil
}

func (f *fakeExportNotifier) NotifyExportComplete(context.Context, int64, string, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages = append(f.stages, "complete")
	return nil
}

func (f *fakeExportNotifier) NotifyExportFailed(context.Context, int64, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages = append(f.stages, "failed")
	return nil
}

func strp(s string) *string { return &s }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
