package domain

import "fmt"

type CaseStatus string

const (
	StatusActive    CaseStatus = "ACTIVE"
	StatusClosed    CaseStatus = "CLOSED"
	StatusSuspended CaseStatus = "SUSPENDED"
	StatusCancelled CaseStatus = "CANCELLED"
)

// StatusFilterAll disables status filtering in case list reads.
const StatusFilterAll = "ALL"

// StatusPolicy holds the set of supported case statuses and the allowed
// transitions between them. Transitions are only ever user-triggered.
type StatusPolicy struct {
	transitions map[CaseStatus]map[CaseStatus]bool
}

type StatusPolicyOptions struct {
	// AllowCancelled promotes CANCELLED to a supported state.
	AllowCancelled bool
	// LockClosed forbids moving a CLOSED case to any other state.
	LockClosed bool
}

func NewStatusPolicy(opts StatusPolicyOptions) *StatusPolicy {
	states := []CaseStatus{StatusActive, StatusClosed, StatusSuspended}
	if opts.AllowCancelled {
		states = append(states, StatusCancelled)
	}

	t := make(map[CaseStatus]map[CaseStatus]bool, len(states))
	for _, from := range states {
		t[from] = make(map[CaseStatus]bool, len(states))
		if from == StatusClosed && opts.LockClosed {
			continue
		}
		for _, to := range states {
			if to != from {
				t[from][to] = true
			}
		}
	}

	return &StatusPolicy{transitions: t}
}

func (p *StatusPolicy) Supports(s CaseStatus) bool {
	_, ok := p.transitions[s]
	return ok
}

func (p *StatusPolicy) States() []CaseStatus {
	out := make([]CaseStatus, 0, len(p.transitions))
	for _, s := range []CaseStatus{StatusActive, StatusClosed, StatusSuspended, StatusCancelled} {
		if p.Supports(s) {
			out = append(out, s)
		}
	}
	return out
}

// CheckTransition returns a *ValidationError when from -> to is not allowed.
// Setting a case to its current status is a no-op and always allowed.
func (p *StatusPolicy) CheckTransition(from, to CaseStatus) error {
	if !p.Supports(to) {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unsupported status %q", to)}
	}
	if from == to {
		return nil
	}
	if !p.transitions[from][to] {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("transition %s -> %s is not allowed", from, to)}
	}
	return nil
}
