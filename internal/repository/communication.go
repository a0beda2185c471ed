package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"debtster-dashboard/internal/domain"
)

type CommunicationRepository struct {
	db *sql.DB
}

func NewCommunicationRepository(db *sql.DB) *CommunicationRepository {
	return &CommunicationRepository{db: db}
}

// ListByCase returns the case's communications newest first.
func (r *CommunicationRepository) ListByCase(ctx context.Context, caseID string) ([]domain.Communication, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, case_id, comms_type, direction, status, content, created_at
		FROM comms
		WHERE case_id = $1
		ORDER BY created_at DESC, id DESC
	`, caseID)
	if err != nil {
		return nil, storeErr("list comms", err)
	}
	defer rows.Close()

	out := []domain.Communication{}
	for rows.Next() {
		var (
			c       domain.Communication
			content sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.CaseID, &c.Channel, &c.Direction, &c.Status, &content, &c.CreatedAt); err != nil {
			return nil, storeErr("scan comm", err)
		}
		c.Content = content.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list comms", err)
	}
	return out, nil
}

// LatestByCases resolves the newest communication timestamp per case id in a
// single query. Cases without communications are absent from the result.
func (r *CommunicationRepository) LatestByCases(ctx context.Context, caseIDs []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(caseIDs))
	if len(caseIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(caseIDs))
	for i, id := range caseIDs {
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT ON (case_id) case_id, created_at
		FROM comms
		WHERE case_id IN (%s)
		ORDER BY case_id, created_at DESC
	`, placeholders(1, len(caseIDs)))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("latest comms", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			caseID string
			at     time.Time
		)
		if err := rows.Scan(&caseID, &at); err != nil {
			return nil, storeErr("scan latest comm", err)
		}
		out[caseID] = at
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("latest comms", err)
	}
	return out, nil
}

func (r *CommunicationRepository) Create(ctx context.Context, c *domain.Communication) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO comms (case_id, comms_type, direction, status, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, c.CaseID, string(c.Channel), string(c.Direction), string(c.Status), c.Content).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return storeErr("create comm", err)
	}
	return nil
}
