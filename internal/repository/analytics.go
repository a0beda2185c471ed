package repository

import (
	"context"
	"database/sql"
	"time"

	"debtster-dashboard/internal/domain"
)

// CaseTotals are the case-level sums behind the core metrics.
type CaseTotals struct {
	ActiveRemaining int64
	ActiveCount     int64
	TotalDebtAmount int64
	TotalRemaining  int64
}

// AgingRow is the slice of an ACTIVE case the aging distribution needs.
type AgingRow struct {
	DueDate       time.Time
	DebtRemaining int64
}

type AnalyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) CaseTotals(ctx context.Context) (CaseTotals, error) {
	var t CaseTotals
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(debt_remaining) FILTER (WHERE status = $1), 0),
			COUNT(*) FILTER (WHERE status = $1),
			COALESCE(SUM(debt_amount), 0),
			COALESCE(SUM(debt_remaining), 0)
		FROM cases
	`, string(domain.StatusActive)).Scan(&t.ActiveRemaining, &t.ActiveCount, &t.TotalDebtAmount, &t.TotalRemaining)
	if err != nil {
		return CaseTotals{}, storeErr("case totals", err)
	}
	return t, nil
}

func (r *AnalyticsRepository) ActiveAging(ctx context.Context) ([]AgingRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT due_date, debt_remaining
		FROM cases
		WHERE status = $1
	`, string(domain.StatusActive))
	if err != nil {
		return nil, storeErr("active aging", err)
	}
	defer rows.Close()

	out := []AgingRow{}
	for rows.Next() {
		var a AgingRow
		if err := rows.Scan(&a.DueDate, &a.DebtRemaining); err != nil {
			return nil, storeErr("scan aging row", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("active aging", err)
	}
	return out, nil
}
