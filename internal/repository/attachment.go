package repository

import (
	"context"
	"database/sql"

	"debtster-dashboard/internal/domain"
)

type AttachmentRepository struct {
	db *sql.DB
}

func NewAttachmentRepository(db *sql.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

const attachmentColumns = `id, case_id, file_name, file_path, description, created_at, updated_at`

func scanAttachment(row rowScanner) (domain.Attachment, error) {
	var (
		a    domain.Attachment
		desc sql.NullString
	)
	if err := row.Scan(&a.ID, &a.CaseID, &a.FileName, &a.FilePath, &desc, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return domain.Attachment{}, err
	}
	a.Description = nullString(desc)
	return a, nil
}

// ListByCase returns attachments newest first.
func (r *AttachmentRepository) ListByCase(ctx context.Context, caseID string) ([]domain.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+attachmentColumns+`
		FROM case_attachments
		WHERE case_id = $1
		ORDER BY created_at DESC, id DESC
	`, caseID)
	if err != nil {
		return nil, storeErr("list attachments", err)
	}
	defer rows.Close()

	out := []domain.Attachment{}
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, storeErr("scan attachment", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list attachments", err)
	}
	return out, nil
}

func (r *AttachmentRepository) Get(ctx context.Context, caseID, id string) (*domain.Attachment, error) {
	a, err := scanAttachment(r.db.QueryRowContext(ctx, `
		SELECT `+attachmentColumns+`
		FROM case_attachments
		WHERE case_id = $1 AND id = $2
	`, caseID, id))
	if err != nil {
		return nil, storeErr("get attachment "+id, err)
	}
	return &a, nil
}

func (r *AttachmentRepository) Create(ctx context.Context, a *domain.Attachment) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO case_attachments (case_id, file_name, file_path, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, a.CaseID, a.FileName, a.FilePath, a.Description).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return storeErr("create attachment", err)
	}
	return nil
}
