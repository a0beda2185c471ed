package service

import (
	"context"
	"fmt"
	"strings"

	"debtster-dashboard/internal/domain"
)

// AddCommunication logs an outbound, completed interaction on a case.
func (s *CaseService) AddCommunication(ctx context.Context, caseID string, channel domain.CommChannel, content string) (*domain.Communication, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &domain.ValidationError{Field: "content", Message: "content is required"}
	}
	if !channel.Valid() {
		return nil, &domain.ValidationError{Field: "channel", Message: fmt.Sprintf("unknown channel %q", channel)}
	}

	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		return nil, fmt.Errorf("add communication: %w", err)
	}

	comm := &domain.Communication{
		CaseID:    caseID,
		Channel:   channel,
		Direction: domain.DirectionOutbound,
		Status:    domain.CommCompleted,
		Content:   content,
	}
	if err := s.comms.Create(ctx, comm); err != nil {
		return nil, fmt.Errorf("add communication: %w", err)
	}
	return comm, nil
}
