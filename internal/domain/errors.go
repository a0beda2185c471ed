package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("record store unavailable")
	ErrValidation       = errors.New("validation failed")
	// ErrConflict means the row changed between read and write.
	ErrConflict = errors.New("conflicting update")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
