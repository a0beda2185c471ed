package service

import (
	"context"
	"errors"
	"fmt"

	"debtster-dashboard/internal/domain"
	"debtster-dashboard/internal/logger"

	"go.uber.org/zap"
)

type StatusNotifier interface {
	NotifyCaseStatusChanged(ctx context.Context, caseID, from, to string, changedBy int64) error
}

// CacheInvalidator drops cached aggregates after a write that changes them.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// maxStatusAttempts bounds re-reads when a concurrent change wins the update.
const maxStatusAttempts = 2

type StatusChange struct {
	CaseID string
	From   domain.CaseStatus
	To     domain.CaseStatus
}

// ChangeStatus moves a case to a new status when the policy allows it.
// Setting the current status again is a no-op and writes nothing.
func (s *CaseService) ChangeStatus(ctx context.Context, caseID string, to domain.CaseStatus, changedBy int64) (*StatusChange, error) {
	var change *StatusChange
	for attempt := 0; ; attempt++ {
		current, err := s.cases.GetByID(ctx, caseID)
		if err != nil {
			return nil, fmt.Errorf("change status: %w", err)
		}

		if err := s.policy.CheckTransition(current.Status, to); err != nil {
			return nil, err
		}

		change = &StatusChange{CaseID: caseID, From: current.Status, To: to}
		if current.Status == to {
			return change, nil
		}

		// the update only applies while the case still has the status checked above
		err = s.cases.UpdateStatus(ctx, caseID, current.Status, to)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= maxStatusAttempts-1 {
			return nil, fmt.Errorf("change status: %w", err)
		}
	}

	log := logger.FromContext(ctx)
	log.Info("case status changed",
		zap.String("case_id", caseID),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)),
		zap.Int64("user_id", changedBy),
	)

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			log.Warn("analytics cache invalidation failed", zap.Error(err))
		}
	}
	if s.notifier != nil {
		_ = s.notifier.NotifyCaseStatusChanged(ctx, caseID, string(change.From), string(change.To), changedBy)
	}
	return change, nil
}

// Statuses lists the statuses agents may choose from.
func (s *CaseService) Statuses() []domain.CaseStatus {
	return s.policy.States()
}
