package repository

import (
	"context"
	"database/sql"

	"debtster-dashboard/internal/domain"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ListCompleted returns completed payments in chronological order with the
// owning case priority, for recovery series.
func (r *PaymentRepository) ListCompleted(ctx context.Context) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.amount_received, p.currency, p.created_at, p.priority, c.priority
		FROM payments p
		LEFT JOIN cases c ON c.id = p.case_id
		WHERE p.status = $1
		ORDER BY p.created_at, p.id
	`, string(domain.PaymentCompleted))
	if err != nil {
		return nil, storeErr("list completed payments", err)
	}
	defer rows.Close()

	out := []domain.Payment{}
	for rows.Next() {
		var (
			p            domain.Payment
			priority     sql.NullString
			casePriority sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.AmountReceived, &p.Currency, &p.CreatedAt, &priority, &casePriority); err != nil {
			return nil, storeErr("scan payment", err)
		}
		p.Status = domain.PaymentCompleted
		p.Priority = nullString(priority)
		if casePriority.Valid {
			cp := domain.CasePriority(casePriority.String)
			p.CasePriority = &cp
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list completed payments", err)
	}
	return out, nil
}

// ListRecent returns the newest payments of any status with case number and debtor name.
func (r *PaymentRepository) ListRecent(ctx context.Context, limit int) ([]domain.Payment, error) {
	query := `
		SELECT
			p.id, p.case_id, p.amount_received, p.currency, p.payment_method, p.status, p.created_at,
			c.case_number, d.first_name, d.last_name
		FROM payments p
		LEFT JOIN cases c ON c.id = p.case_id
		LEFT JOIN debtors d ON d.id = c.debtor_id
		ORDER BY p.created_at DESC, p.id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list payments", err)
	}
	defer rows.Close()

	out := []domain.Payment{}
	for rows.Next() {
		var (
			p                                  domain.Payment
			caseID, method                     sql.NullString
			caseNumber, debtorFirst, debtorLst sql.NullString
		)
		if err := rows.Scan(
			&p.ID, &caseID, &p.AmountReceived, &p.Currency, &method, &p.Status, &p.CreatedAt,
			&caseNumber, &debtorFirst, &debtorLst,
		); err != nil {
			return nil, storeErr("scan payment", err)
		}
		p.CaseID = nullString(caseID)
		p.Method = nullString(method)
		p.CaseNumber = nullString(caseNumber)
		p.DebtorFirstName = nullString(debtorFirst)
		p.DebtorLastName = nullString(debtorLst)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list payments", err)
	}
	return out, nil
}
