package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"debtster-dashboard/internal/domain"
)

type CasesFilter struct {
	Status      *domain.CaseStatus
	NewestFirst bool
	Limit       int
}

type CaseRepository struct {
	db *sql.DB
}

func NewCaseRepository(db *sql.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

const caseSelect = `
	SELECT
		c.id,
		c.case_number,
		c.status,
		c.priority,
		c.debt_amount,
		c.debt_remaining,
		c.currency,
		c.due_date,
		c.created_at,
		c.case_description,
		c.dispute_reason,
		c.creditor_name,
		c.debtor_id,

		d.id,
		d.first_name,
		d.last_name,
		d.email,
		d.phone_number,
		d.nationality,
		d.language,
		d.status,
		d.total_debt_amount,
		d.total_debt_remaining
	FROM cases c
	LEFT JOIN debtors d ON d.id = c.debtor_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (domain.Case, error) {
	var (
		c        domain.Case
		desc     sql.NullString
		dispute  sql.NullString
		creditor sql.NullString
		debtorFK sql.NullString

		debtorID    sql.NullString
		firstName   sql.NullString
		lastName    sql.NullString
		email       sql.NullString
		phone       sql.NullString
		nationality sql.NullString
		language    sql.NullString
		status      sql.NullString
		totalAmount sql.NullInt64
		totalRemain sql.NullInt64
	)

	if err := row.Scan(
		&c.ID,
		&c.CaseNumber,
		&c.Status,
		&c.Priority,
		&c.DebtAmount,
		&c.DebtRemaining,
		&c.Currency,
		&c.DueDate,
		&c.CreatedAt,
		&desc,
		&dispute,
		&creditor,
		&debtorFK,

		&debtorID,
		&firstName,
		&lastName,
		&email,
		&phone,
		&nationality,
		&language,
		&status,
		&totalAmount,
		&totalRemain,
	); err != nil {
		return domain.Case{}, err
	}

	c.Description = nullString(desc)
	c.DisputeReason = nullString(dispute)
	c.CreditorName = nullString(creditor)
	c.DebtorID = nullString(debtorFK)

	if debtorID.Valid {
		c.Debtor = &domain.Debtor{
			ID:                 debtorID.String,
			FirstName:          firstName.String,
			LastName:           lastName.String,
			Email:              nullString(email),
			Phone:              nullString(phone),
			Nationality:        nullString(nationality),
			Language:           nullString(language),
			Status:             nullString(status),
			TotalDebtAmount:    totalAmount.Int64,
			TotalDebtRemaining: totalRemain.Int64,
		}
	}

	return c, nil
}

// List returns cases joined with their debtor. Without NewestFirst rows come
// back in insertion order, which callers rely on as the stable tie-break.
func (r *CaseRepository) List(ctx context.Context, f CasesFilter) ([]domain.Case, error) {
	where := []string{"1=1"}
	args := []any{}
	i := 1

	if f.Status != nil {
		where = append(where, fmt.Sprintf("c.status = $%d", i))
		args = append(args, string(*f.Status))
		i++
	}

	query := caseSelect + " WHERE " + strings.Join(where, " AND ")
	if f.NewestFirst {
		query += " ORDER BY c.created_at DESC, c.id DESC"
	} else {
		query += " ORDER BY c.created_at, c.id"
	}
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", i)
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list cases", err)
	}
	defer rows.Close()

	result := []domain.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, storeErr("scan case", err)
		}
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("list cases", err)
	}

	return result, nil
}

func (r *CaseRepository) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	row := r.db.QueryRowContext(ctx, caseSelect+" WHERE c.id = $1", id)

	c, err := scanCase(row)
	if err != nil {
		return nil, storeErr("get case "+id, err)
	}
	return &c, nil
}

// UpdateStatus moves a case from one status to another. It reports
// domain.ErrConflict when the case no longer has status from.
func (r *CaseRepository) UpdateStatus(ctx context.Context, id string, from, to domain.CaseStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cases SET status = $1 WHERE id = $2 AND status = $3`,
		string(to), id, string(from),
	)
	if err != nil {
		return storeErr("update case status", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("update case status", err)
	}
	if n == 0 {
		return fmt.Errorf("update case status %s: %w", id, domain.ErrConflict)
	}
	return nil
}
