package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"debtster-dashboard/internal/domain"
	"debtster-dashboard/internal/service"
)

// ValidationError is a malformed request parameter, answered with 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &ValidationError{Field: "body", Message: "request body is required"}
		}
		return &ValidationError{Field: "body", Message: "invalid JSON"}
	}
	return nil
}

// StatusFilterParser validates the status query value.
type StatusFilterParser interface {
	ParseStatusFilter(raw string) (string, error)
}

type caseListParams struct {
	Status    string `json:"status"`
	Search    string `json:"search"`
	Sort      string `json:"sort"`
	Direction string `json:"direction"`
}

func (p caseListParams) toQuery(statuses StatusFilterParser) (service.CaseListQuery, error) {
	q := service.CaseListQuery{Search: p.Search}

	status, err := statuses.ParseStatusFilter(p.Status)
	if err != nil {
		return q, &ValidationError{Field: "status", Message: err.Error()}
	}
	q.Status = status

	sortCol := strings.ToLower(strings.TrimSpace(p.Sort))
	dir := strings.ToLower(strings.TrimSpace(p.Direction))
	if sortCol == "" {
		if dir != "" {
			return q, &ValidationError{Field: "direction", Message: "direction requires sort"}
		}
		return q, nil
	}

	col := service.SortColumn(sortCol)
	if !col.Valid() {
		return q, &ValidationError{Field: "sort", Message: fmt.Sprintf("unknown sort column %q", p.Sort)}
	}

	switch service.SortDirection(dir) {
	case "", service.SortAsc:
		q.Sort = service.SortSpec{Column: col, Direction: service.SortAsc}
	case service.SortDesc:
		q.Sort = service.SortSpec{Column: col, Direction: service.SortDesc}
	default:
		return q, &ValidationError{Field: "direction", Message: "direction must be asc or desc"}
	}
	return q, nil
}

// ParseCaseListQuery reads ?status=&search=&sort=&direction=.
func ParseCaseListQuery(r *http.Request, statuses StatusFilterParser) (service.CaseListQuery, error) {
	v := r.URL.Query()
	return caseListParams{
		Status:    v.Get("status"),
		Search:    v.Get("search"),
		Sort:      v.Get("sort"),
		Direction: v.Get("direction"),
	}.toQuery(statuses)
}

type statusRequest struct {
	Status string `json:"status"`
}

func ValidateStatusRequest(r *http.Request) (domain.CaseStatus, error) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", err
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status == "" {
		return "", &ValidationError{Field: "status", Message: "status is required"}
	}
	return domain.CaseStatus(status), nil
}

type communicationRequest struct {
	Channel string `json:"channel"`
	Content string `json:"content"`
}

func ValidateCommunicationRequest(r *http.Request) (domain.CommChannel, string, error) {
	var req communicationRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", "", err
	}
	return domain.CommChannel(strings.ToLower(strings.TrimSpace(req.Channel))), req.Content, nil
}

type debtorRequest struct {
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Email        *string `json:"email"`
	Phone        string  `json:"phone_number"`
	Nationality  *string `json:"nationality"`
	Language     *string `json:"language"`
	CaseNumber   string  `json:"case_number"`
	DebtAmount   int64   `json:"debt_amount"`
	Currency     string  `json:"currency"`
	DueDate      string  `json:"due_date"`
	Priority     string  `json:"priority"`
	Description  *string `json:"case_description"`
	CreditorName *string `json:"creditor_name"`
}

func ValidateDebtorRequest(r *http.Request) (service.NewDebtorInput, error) {
	var req debtorRequest
	if err := decodeJSON(r, &req); err != nil {
		return service.NewDebtorInput{}, err
	}

	due, err := parseDate(req.DueDate)
	if err != nil {
		return service.NewDebtorInput{}, &ValidationError{Field: "due_date", Message: "due_date must be YYYY-MM-DD or RFC3339"}
	}

	return service.NewDebtorInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        emptyToNil(req.Email),
		Phone:        req.Phone,
		Nationality:  emptyToNil(req.Nationality),
		Language:     emptyToNil(req.Language),
		CaseNumber:   req.CaseNumber,
		DebtAmount:   req.DebtAmount,
		Currency:     req.Currency,
		DueDate:      due,
		Priority:     domain.CasePriority(strings.ToUpper(strings.TrimSpace(req.Priority))),
		Description:  emptyToNil(req.Description),
		CreditorName: emptyToNil(req.CreditorName),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

type exportRequest struct {
	Fields []string `json:"fields"`
	caseListParams
}

func ValidateExportRequest(r *http.Request, statuses StatusFilterParser) ([]string, service.CaseListQuery, error) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, service.CaseListQuery{}, &ValidationError{Field: "body", Message: "invalid JSON"}
	}

	for _, f := range req.Fields {
		if !service.ExportColumnValid(f) {
			return nil, service.CaseListQuery{}, &ValidationError{Field: "fields", Message: fmt.Sprintf("unknown field %q", f)}
		}
	}

	q, err := req.caseListParams.toQuery(statuses)
	if err != nil {
		return nil, service.CaseListQuery{}, err
	}
	return req.Fields, q, nil
}

func parseLimit(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &ValidationError{Field: "limit", Message: "limit must be a non-negative integer"}
	}
	return n, nil
}
