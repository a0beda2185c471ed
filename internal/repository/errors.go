package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"debtster-dashboard/internal/domain"
)

// storeErr tags a failed read or write as a store-level failure. Context
// cancellation stays recognisable through errors.Is.
func storeErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

// placeholders renders "$start, $start+1, ..." for n arguments.
func placeholders(start, n int) string {
	b := make([]byte, 0, n*4)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, fmt.Sprintf("$%d", start+i)...)
	}
	return string(b)
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
