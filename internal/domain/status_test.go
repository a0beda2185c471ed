package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusPolicy_DefaultAllowsAnyToAny(t *testing.T) {
	p := NewStatusPolicy(StatusPolicyOptions{})

	for _, from := range []CaseStatus{StatusActive, StatusClosed, StatusSuspended} {
		for _, to := range []CaseStatus{StatusActive, StatusClosed, StatusSuspended} {
			assert.NoError(t, p.CheckTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestStatusPolicy_CancelledIsOptIn(t *testing.T) {
	p := NewStatusPolicy(StatusPolicyOptions{})
	err := p.CheckTransition(StatusActive, StatusCancelled)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, []CaseStatus{StatusActive, StatusClosed, StatusSuspended}, p.States())

	p = NewStatusPolicy(StatusPolicyOptions{AllowCancelled: true})
	assert.NoError(t, p.CheckTransition(StatusActive, StatusCancelled))
	assert.NoError(t, p.CheckTransition(StatusCancelled, StatusActive))
	assert.Len(t, p.States(), 4)
}

func TestStatusPolicy_LockClosed(t *testing.T) {
	p := NewStatusPolicy(StatusPolicyOptions{LockClosed: true})

	assert.NoError(t, p.CheckTransition(StatusActive, StatusClosed))
	assert.NoError(t, p.CheckTransition(StatusClosed, StatusClosed))

	err := p.CheckTransition(StatusClosed, StatusActive)
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "status", ve.Field)
}

func TestCase_Validate(t *testing.T) {
	assert.NoError(t, Case{DebtAmount: 100, DebtRemaining: 100}.Validate())
	assert.NoError(t, Case{DebtAmount: 100, DebtRemaining: 0}.Validate())
	assert.Error(t, Case{DebtAmount: 100, DebtRemaining: 101}.Validate())
	assert.Error(t, Case{DebtAmount: 100, DebtRemaining: -1}.Validate())
}

func TestFormatDisputeReason(t *testing.T) {
	reason := "PAYMENT_ALREADY_MADE"
	assert.Equal(t, "payment already made", FormatDisputeReason(&reason))
	assert.Equal(t, NotAvailable, FormatDisputeReason(nil))
}

func TestCase_DebtorName(t *testing.T) {
	assert.Equal(t, NotAvailable, Case{}.DebtorName())
	assert.Equal(t, "John Doe", Case{Debtor: &Debtor{FirstName: "John", LastName: "Doe"}}.DebtorName())
}
