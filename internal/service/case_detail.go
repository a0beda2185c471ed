package service

import (
	"context"
	"fmt"

	"debtster-dashboard/internal/domain"

	"golang.org/x/sync/errgroup"
)

const suspendedWarning = "This case is suspended and under dispute"

type CaseWarning struct {
	Message       string
	DisputeReason string
}

// CaseDetail is everything the case page shows. Debtor is nil when the case
// has no resolved debtor. Lists are newest first and never nil.
type CaseDetail struct {
	Case           domain.Case
	Debtor         *domain.Debtor
	Communications []domain.Communication
	Attachments    []domain.Attachment
	Warning        *CaseWarning
}

// GetCaseDetail reads the case, its communications and its attachments
// concurrently. Any failed read fails the whole call.
func (s *CaseService) GetCaseDetail(ctx context.Context, id string) (*CaseDetail, error) {
	var (
		c           *domain.Case
		comms       []domain.Communication
		attachments []domain.Attachment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		c, err = s.cases.GetByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		comms, err = s.comms.ListByCase(gctx, id)
		return err
	})
	g.Go(func() error {
		if s.attachments == nil {
			return nil
		}
		var err error
		attachments, err = s.attachments.ListByCase(gctx, id)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("case detail %s: %w", id, err)
	}

	if comms == nil {
		comms = []domain.Communication{}
	}
	if attachments == nil {
		attachments = []domain.Attachment{}
	}

	detail := &CaseDetail{
		Case:           *c,
		Debtor:         c.Debtor,
		Communications: comms,
		Attachments:    attachments,
	}
	if c.Status == domain.StatusSuspended {
		detail.Warning = &CaseWarning{
			Message:       suspendedWarning,
			DisputeReason: domain.FormatDisputeReason(c.DisputeReason),
		}
	}
	return detail, nil
}
