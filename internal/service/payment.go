package service

import (
	"context"
	"fmt"
	"strings"

	"debtster-dashboard/internal/domain"
)

type PaymentFeedRepository interface {
	ListRecent(ctx context.Context, limit int) ([]domain.Payment, error)
}

const (
	defaultPaymentsLimit = 50
	maxPaymentsLimit     = 500
)

type PaymentView struct {
	domain.Payment
	DebtorName string
}

type PaymentService struct {
	repo PaymentFeedRepository
}

func NewPaymentService(repo PaymentFeedRepository) *PaymentService {
	return &PaymentService{repo: repo}
}

// ListPayments returns the newest payments of any status. A non-positive
// limit falls back to the default page size.
func (s *PaymentService) ListPayments(ctx context.Context, limit int) ([]PaymentView, error) {
	switch {
	case limit <= 0:
		limit = defaultPaymentsLimit
	case limit > maxPaymentsLimit:
		limit = maxPaymentsLimit
	}

	payments, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	out := make([]PaymentView, 0, len(payments))
	for _, p := range payments {
		out = append(out, PaymentView{Payment: p, DebtorName: payerName(p)})
	}
	return out, nil
}

func payerName(p domain.Payment) string {
	var parts []string
	if p.DebtorFirstName != nil {
		parts = append(parts, *p.DebtorFirstName)
	}
	if p.DebtorLastName != nil {
		parts = append(parts, *p.DebtorLastName)
	}
	if name := strings.TrimSpace(strings.Join(parts, " ")); name != "" {
		return name
	}
	return domain.NotAvailable
}
