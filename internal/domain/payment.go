package domain

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCancelled PaymentStatus = "cancelled"
)

type Payment struct {
	ID             string
	CaseID         *string
	AmountReceived int64
	Currency       string
	Method         *string
	Status         PaymentStatus
	CreatedAt      time.Time

	// Priority is the payment's own bucket (low|medium|high|critical).
	// CasePriority is the owning case's priority, used when Priority is nil.
	Priority     *string
	CasePriority *CasePriority

	// joined for feeds
	CaseNumber      *string
	DebtorFirstName *string
	DebtorLastName  *string
}
