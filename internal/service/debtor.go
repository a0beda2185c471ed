package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"debtster-dashboard/internal/domain"
	"debtster-dashboard/internal/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type DebtorRepository interface {
	FindByPhone(ctx context.Context, phone string) (*domain.Debtor, error)
	CreateWithCase(ctx context.Context, d *domain.Debtor, c *domain.Case) error
}

// NewDebtorInput onboards a debtor together with their first case.
type NewDebtorInput struct {
	FirstName   string  `json:"first_name" validate:"required,max=100"`
	LastName    string  `json:"last_name" validate:"required,max=100"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       string  `json:"phone_number" validate:"required,min=5,max=32"`
	Nationality *string `json:"nationality" validate:"omitempty,max=64"`
	Language    *string `json:"language" validate:"omitempty,max=32"`

	CaseNumber   string              `json:"case_number" validate:"required,max=64"`
	DebtAmount   int64               `json:"debt_amount" validate:"gt=0"`
	Currency     string              `json:"currency" validate:"required,len=3,alpha"`
	DueDate      time.Time           `json:"due_date" validate:"required"`
	Priority     domain.CasePriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Description  *string             `json:"case_description"`
	CreditorName *string             `json:"creditor_name"`
}

type DebtorService struct {
	repo        DebtorRepository
	invalidator CacheInvalidator
	validate    *validator.Validate
}

// NewDebtorService builds the onboarding service. invalidator may be nil.
func NewDebtorService(repo DebtorRepository, invalidator CacheInvalidator) *DebtorService {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &DebtorService{repo: repo, invalidator: invalidator, validate: v}
}

// CreateDebtor rejects a phone number that already belongs to a debtor before
// anything is written, then stores the debtor and case in one transaction.
func (s *DebtorService) CreateDebtor(ctx context.Context, in NewDebtorInput) (*domain.Debtor, *domain.Case, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.CaseNumber = strings.TrimSpace(in.CaseNumber)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))

	if err := s.validate.Struct(in); err != nil {
		return nil, nil, validationError(err)
	}

	existing, err := s.repo.FindByPhone(ctx, in.Phone)
	switch {
	case err == nil && existing != nil:
		return nil, nil, &domain.ValidationError{
			Field:   "phone_number",
			Message: "a debtor with this phone number already exists",
		}
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, nil, fmt.Errorf("check debtor phone: %w", err)
	}

	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	status := "active"

	debtor := &domain.Debtor{
		FirstName:          in.FirstName,
		LastName:           in.LastName,
		Email:              in.Email,
		Phone:              &in.Phone,
		Nationality:        in.Nationality,
		Language:           in.Language,
		Status:             &status,
		TotalDebtAmount:    in.DebtAmount,
		TotalDebtRemaining: in.DebtAmount,
	}
	c := &domain.Case{
		CaseNumber:    in.CaseNumber,
		Status:        domain.StatusActive,
		Priority:      priority,
		DebtAmount:    in.DebtAmount,
		DebtRemaining: in.DebtAmount,
		Currency:      in.Currency,
		DueDate:       in.DueDate,
		Description:   in.Description,
		CreditorName:  in.CreditorName,
	}
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	if err := s.repo.CreateWithCase(ctx, debtor, c); err != nil {
		return nil, nil, fmt.Errorf("create debtor: %w", err)
	}
	c.Debtor = debtor

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			logger.FromContext(ctx).Warn("analytics cache invalidation failed", zap.String("case_id", c.ID), zap.Error(err))
		}
	}
	return debtor, c, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &domain.ValidationError{Message: err.Error()}
	}
	e := verrs[0]
	return &domain.ValidationError{Field: e.Field(), Message: e.Field() + ": " + validationMessage(e)}
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "invalid email format"
	case "min":
		return "must be at least " + e.Param() + " characters"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "len":
		return "must be exactly " + e.Param() + " characters"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "alpha":
		return "must contain only letters"
	default:
		return "invalid value"
	}
}
