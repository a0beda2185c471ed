package service

import (
	"cmp"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"debtster-dashboard/internal/domain"
	"debtster-dashboard/internal/repository"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type CaseRepository interface {
	List(ctx context.Context, f repository.CasesFilter) ([]domain.Case, error)
	GetByID(ctx context.Context, id string) (*domain.Case, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.CaseStatus) error
}

type CommunicationRepository interface {
	ListByCase(ctx context.Context, caseID string) ([]domain.Communication, error)
	LatestByCases(ctx context.Context, caseIDs []string) (map[string]time.Time, error)
	Create(ctx context.Context, c *domain.Communication) error
}

type AttachmentReader interface {
	ListByCase(ctx context.Context, caseID string) ([]domain.Attachment, error)
}

type SortColumn string

const (
	SortCaseNumber    SortColumn = "case_number"
	SortDebtor        SortColumn = "debtor"
	SortDebtRemaining SortColumn = "debt_remaining"
	SortStatus        SortColumn = "status"
	SortDueDate       SortColumn = "due_date"
	SortLatestComm    SortColumn = "latest_comm"
)

func (c SortColumn) Valid() bool {
	switch c {
	case SortCaseNumber, SortDebtor, SortDebtRemaining, SortStatus, SortDueDate, SortLatestComm:
		return true
	}
	return false
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec is the list's sort state. A zero Column keeps store order.
type SortSpec struct {
	Column    SortColumn
	Direction SortDirection
}

// Toggle returns the sort state after the user clicks column: the active column
// flips direction, any other column starts ascending.
func (s SortSpec) Toggle(column SortColumn) SortSpec {
	if s.Column == column {
		if s.Direction == SortDesc {
			return SortSpec{Column: column, Direction: SortAsc}
		}
		return SortSpec{Column: column, Direction: SortDesc}
	}
	return SortSpec{Column: column, Direction: SortAsc}
}

type CaseListQuery struct {
	// Status is a domain.CaseStatus or domain.StatusFilterAll. Empty means all.
	Status string
	Search string
	Sort   SortSpec
}

// CaseSummary is one row of the case list. LatestActivity is nil when the
// case has no communications.
type CaseSummary struct {
	ID             string
	CaseNumber     string
	DebtRemaining  int64
	Status         domain.CaseStatus
	Priority       domain.CasePriority
	DueDate        time.Time
	Currency       string
	DebtorName     string
	LatestActivity *time.Time

	// debtorKey is "first last", empty when the debtor is missing.
	debtorKey string
}

const defaultLatestCommChunk = 500

type CaseService struct {
	cases       CaseRepository
	comms       CommunicationRepository
	attachments AttachmentReader
	policy      *domain.StatusPolicy
	notifier    StatusNotifier
	invalidator CacheInvalidator

	chunkSize   int
	parallelism int
	now         func() time.Time
}

func NewCaseService(
	cases CaseRepository,
	comms CommunicationRepository,
	attachments AttachmentReader,
	policy *domain.StatusPolicy,
	notifier StatusNotifier,
	invalidator CacheInvalidator,
) *CaseService {
	if policy == nil {
		policy = domain.NewStatusPolicy(domain.StatusPolicyOptions{})
	}
	return &CaseService{
		cases:       cases,
		comms:       comms,
		attachments: attachments,
		policy:      policy,
		notifier:    notifier,
		invalidator: invalidator,
		chunkSize:   defaultLatestCommChunk,
		parallelism: 4,
		now:         time.Now,
	}
}

// ParseStatusFilter validates a status query value against the policy.
func (s *CaseService) ParseStatusFilter(raw string) (string, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" || raw == domain.StatusFilterAll {
		return domain.StatusFilterAll, nil
	}
	if !s.policy.Supports(domain.CaseStatus(raw)) {
		return "", &domain.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", raw)}
	}
	return raw, nil
}

func (s *CaseService) ListCases(ctx context.Context, q CaseListQuery) ([]CaseSummary, error) {
	filter := repository.CasesFilter{}
	if q.Status != "" && q.Status != domain.StatusFilterAll {
		st := domain.CaseStatus(q.Status)
		filter.Status = &st
	}

	cases, err := s.cases.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	cases = FilterCases(cases, q.Search)

	ids := make([]string, len(cases))
	for i, c := range cases {
		ids[i] = c.ID
	}
	latest, err := s.latestActivity(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("latest communications: %w", err)
	}

	out := make([]CaseSummary, len(cases))
	for i, c := range cases {
		out[i] = newCaseSummary(c, latest)
	}
	SortCases(out, q.Sort)
	return out, nil
}

func newCaseSummary(c domain.Case, latest map[string]time.Time) CaseSummary {
	sum := CaseSummary{
		ID:            c.ID,
		CaseNumber:    c.CaseNumber,
		DebtRemaining: c.DebtRemaining,
		Status:        c.Status,
		Priority:      c.Priority,
		DueDate:       c.DueDate,
		Currency:      c.Currency,
		DebtorName:    c.DebtorName(),
	}
	if c.Debtor != nil {
		sum.debtorKey = c.Debtor.FullName()
	}
	if at, ok := latest[c.ID]; ok {
		sum.LatestActivity = &at
	}
	return sum
}

// latestActivity resolves the newest communication per case. Lookups run in
// chunks concurrently; the first failure cancels the rest and fails the call.
func (s *CaseService) latestActivity(ctx context.Context, ids []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	var mu sync.Mutex
	for start := 0; start < len(ids); start += s.chunkSize {
		chunk := ids[start:min(start+s.chunkSize, len(ids))]
		g.Go(func() error {
			latest, err := s.comms.LatestByCases(gctx, chunk)
			if err != nil {
				return err
			}
			mu.Lock()
			for id, at := range latest {
				out[id] = at
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FilterCases keeps cases whose number or debtor "first last" contains search,
// ignoring case. An empty search keeps everything.
func FilterCases(cases []domain.Case, search string) []domain.Case {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return cases
	}

	out := make([]domain.Case, 0, len(cases))
	for _, c := range cases {
		if strings.Contains(strings.ToLower(c.CaseNumber), needle) {
			out = append(out, c)
			continue
		}
		if c.Debtor != nil && strings.Contains(strings.ToLower(c.Debtor.FullName()), needle) {
			out = append(out, c)
		}
	}
	return out
}

// SortCases orders rows in place. The sort is stable so equal keys keep
// their incoming order in both directions.
func SortCases(rows []CaseSummary, by SortSpec) {
	less := caseComparator(by.Column)
	if less == nil {
		return
	}
	desc := by.Direction == SortDesc
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return less(rows[j], rows[i]) < 0
		}
		return less(rows[i], rows[j]) < 0
	})
}

func caseComparator(column SortColumn) func(a, b CaseSummary) int {
	switch column {
	case SortCaseNumber:
		return func(a, b CaseSummary) int { return strings.Compare(a.CaseNumber, b.CaseNumber) }
	case SortDebtor:
		col := collate.New(language.English)
		return func(a, b CaseSummary) int { return col.CompareString(a.debtorKey, b.debtorKey) }
	case SortDebtRemaining:
		return func(a, b CaseSummary) int { return cmp.Compare(a.DebtRemaining, b.DebtRemaining) }
	case SortStatus:
		return func(a, b CaseSummary) int { return strings.Compare(string(a.Status), string(b.Status)) }
	case SortDueDate:
		return func(a, b CaseSummary) int { return a.DueDate.Compare(b.DueDate) }
	case SortLatestComm:
		return func(a, b CaseSummary) int { return activityTime(a).Compare(activityTime(b)) }
	}
	return nil
}

func activityTime(c CaseSummary) time.Time {
	if c.LatestActivity == nil {
		return time.Time{}
	}
	return *c.LatestActivity
}
