package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"debtster-dashboard/internal/domain"
	"debtster-dashboard/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AttachmentRepository interface {
	ListByCase(ctx context.Context, caseID string) ([]domain.Attachment, error)
	Get(ctx context.Context, caseID, id string) (*domain.Attachment, error)
	Create(ctx context.Context, a *domain.Attachment) error
}

type ObjectStorage interface {
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error)
	GetTemporaryURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}

type CaseGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Case, error)
}

type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
	Description *string
}

type AttachmentFailure struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

type UploadResult struct {
	Uploaded []domain.Attachment
	Failed   []AttachmentFailure
}

type AttachmentService struct {
	cases   CaseGetter
	repo    AttachmentRepository
	storage ObjectStorage
	urlTTL  time.Duration
}

func NewAttachmentService(cases CaseGetter, repo AttachmentRepository, storage ObjectStorage, urlTTL time.Duration) *AttachmentService {
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}
	return &AttachmentService{cases: cases, repo: repo, storage: storage, urlTTL: urlTTL}
}

// UploadAttachments stores every file it can. A failed upload or metadata
// write is reported in Failed and the remaining files are still attempted.
// When ctx ends mid-batch the files not yet attempted are reported as failed.
func (s *AttachmentService) UploadAttachments(ctx context.Context, caseID string, files []UploadFile) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, &domain.ValidationError{Field: "files", Message: "at least one file is required"}
	}
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		return nil, fmt.Errorf("upload attachments: %w", err)
	}

	log := logger.FromContext(ctx)
	res := &UploadResult{Uploaded: []domain.Attachment{}, Failed: []AttachmentFailure{}}

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			log.Warn("attachment upload interrupted", zap.String("case_id", caseID), zap.Int("remaining", len(files)-i), zap.Error(err))
			for _, skipped := range files[i:] {
				res.Failed = append(res.Failed, AttachmentFailure{FileName: skipped.Name, Reason: "request cancelled"})
			}
			break
		}

		name := path.Base(strings.ReplaceAll(strings.TrimSpace(f.Name), "\\", "/"))
		if name == "" || name == "." || name == "/" {
			res.Failed = append(res.Failed, AttachmentFailure{FileName: f.Name, Reason: "file name is required"})
			continue
		}

		objectPath := fmt.Sprintf("cases/%s/%s_%s", caseID, uuid.NewString(), name)
		key, err := s.storage.Upload(ctx, objectPath, f.Body, f.Size, f.ContentType)
		if err != nil {
			log.Warn("attachment upload failed", zap.String("case_id", caseID), zap.String("file", name), zap.Error(err))
			res.Failed = append(res.Failed, AttachmentFailure{FileName: name, Reason: "upload failed"})
			continue
		}

		a := domain.Attachment{
			CaseID:      caseID,
			FileName:    name,
			FilePath:    key,
			Description: f.Description,
		}
		if err := s.repo.Create(ctx, &a); err != nil {
			log.Warn("attachment metadata write failed", zap.String("case_id", caseID), zap.String("file", name), zap.Error(err))
			if rmErr := s.storage.Remove(ctx, key); rmErr != nil {
				log.Warn("orphan attachment cleanup failed", zap.String("key", key), zap.Error(rmErr))
			}
			res.Failed = append(res.Failed, AttachmentFailure{FileName: name, Reason: "metadata write failed"})
			continue
		}
		res.Uploaded = append(res.Uploaded, a)
	}

	return res, nil
}

// AttachmentURL returns a time-limited download URL for one attachment.
func (s *AttachmentService) AttachmentURL(ctx context.Context, caseID, attachmentID string) (string, error) {
	a, err := s.repo.Get(ctx, caseID, attachmentID)
	if err != nil {
		return "", fmt.Errorf("attachment url: %w", err)
	}
	url, err := s.storage.GetTemporaryURL(ctx, a.FilePath, s.urlTTL)
	if err != nil {
		return "", fmt.Errorf("attachment url: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return url, nil
}
