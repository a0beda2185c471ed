package domain

import (
	"fmt"
	"strings"
	"time"
)

type CasePriority string

const (
	PriorityLow    CasePriority = "LOW"
	PriorityMedium CasePriority = "MEDIUM"
	PriorityHigh   CasePriority = "HIGH"
	PriorityUrgent CasePriority = "URGENT"
)

func (p CasePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Case is a unit of debt being collected. Amounts are in minor currency units.
type Case struct {
	ID         string
	CaseNumber string

	Status   CaseStatus
	Priority CasePriority

	DebtAmount    int64
	DebtRemaining int64
	Currency      string

	DueDate   time.Time
	CreatedAt time.Time

	Description   *string
	DisputeReason *string
	CreditorName  *string

	DebtorID *string
	Debtor   *Debtor
}

// Validate checks the amount invariant 0 <= remaining <= amount.
func (c Case) Validate() error {
	if c.DebtRemaining < 0 {
		return &ValidationError{Field: "debt_remaining", Message: "debt_remaining must not be negative"}
	}
	if c.DebtRemaining > c.DebtAmount {
		return &ValidationError{
			Field:   "debt_remaining",
			Message: fmt.Sprintf("debt_remaining %d exceeds debt_amount %d", c.DebtRemaining, c.DebtAmount),
		}
	}
	return nil
}

// DebtorName returns "first last" or NotAvailable when the debtor is unresolved.
func (c Case) DebtorName() string {
	if c.Debtor == nil {
		return NotAvailable
	}
	if name := c.Debtor.FullName(); name != "" {
		return name
	}
	return NotAvailable
}

const NotAvailable = "N/A"

// FormatDisputeReason turns "PAYMENT_ALREADY_MADE" into "payment already made".
func FormatDisputeReason(reason *string) string {
	if reason == nil || strings.TrimSpace(*reason) == "" {
		return NotAvailable
	}
	return strings.ReplaceAll(strings.ToLower(*reason), "_", " ")
}
