package repository

import (
	"context"
	"database/sql"

	"debtster-dashboard/internal/domain"
)

type DebtorRepository struct {
	db *sql.DB
}

func NewDebtorRepository(db *sql.DB) *DebtorRepository {
	return &DebtorRepository{db: db}
}

func (r *DebtorRepository) FindByPhone(ctx context.Context, phone string) (*domain.Debtor, error) {
	var (
		d                                     domain.Debtor
		email, dbPhone, nationality, language sql.NullString
		status                                sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, phone_number, nationality, language, status,
			total_debt_amount, total_debt_remaining
		FROM debtors
		WHERE phone_number = $1
		LIMIT 1
	`, phone).Scan(
		&d.ID, &d.FirstName, &d.LastName, &email, &dbPhone, &nationality, &language, &status,
		&d.TotalDebtAmount, &d.TotalDebtRemaining,
	)
	if err != nil {
		return nil, storeErr("find debtor by phone", err)
	}

	d.Email = nullString(email)
	d.Phone = nullString(dbPhone)
	d.Nationality = nullString(nationality)
	d.Language = nullString(language)
	d.Status = nullString(status)
	return &d, nil
}

// CreateWithCase inserts the debtor and their first case in one transaction.
// Ids and timestamps generated by the store are written back into d and c.
func (r *DebtorRepository) CreateWithCase(ctx context.Context, d *domain.Debtor, c *domain.Case) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin debtor tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO debtors (first_name, last_name, email, phone_number, nationality, language, status,
			total_debt_amount, total_debt_remaining)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, d.FirstName, d.LastName, d.Email, d.Phone, d.Nationality, d.Language, d.Status,
		d.TotalDebtAmount, d.TotalDebtRemaining,
	).Scan(&d.ID)
	if err != nil {
		return storeErr("insert debtor", err)
	}

	c.DebtorID = &d.ID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO cases (case_number, status, priority, debt_amount, debt_remaining, currency, due_date,
			case_description, creditor_name, debtor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, c.CaseNumber, string(c.Status), string(c.Priority), c.DebtAmount, c.DebtRemaining, c.Currency, c.DueDate,
		c.Description, c.CreditorName, d.ID,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return storeErr("insert case", err)
	}

	if err = tx.Commit(); err != nil {
		return storeErr("commit debtor tx", err)
	}
	return nil
}
