package service

import (
	"context"
	"fmt"
	"time"

	"debtster-dashboard/internal/domain"
	"debtster-dashboard/internal/repository"
)

type Dispute struct {
	CaseID        string
	CaseNumber    string
	DebtorName    string
	DebtRemaining int64
	Currency      string
	DisputeReason string
	CreatedAt     time.Time
}

// ListDisputes returns suspended cases newest first.
func (s *CaseService) ListDisputes(ctx context.Context) ([]Dispute, error) {
	suspended := domain.StatusSuspended
	cases, err := s.cases.List(ctx, repository.CasesFilter{Status: &suspended, NewestFirst: true})
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}

	out := make([]Dispute, 0, len(cases))
	for _, c := range cases {
		out = append(out, Dispute{
			CaseID:        c.ID,
			CaseNumber:    c.CaseNumber,
			DebtorName:    c.DebtorName(),
			DebtRemaining: c.DebtRemaining,
			Currency:      c.Currency,
			DisputeReason: domain.FormatDisputeReason(c.DisputeReason),
			CreatedAt:     c.CreatedAt,
		})
	}
	return out, nil
}
