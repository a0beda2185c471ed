package rest

import (
	"net/http"
	"time"

	"debtster-dashboard/internal/domain"
	"debtster-dashboard/internal/service"
	"debtster-dashboard/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

type caseRowDTO struct {
	ID             string `json:"id"`
	CaseNumber     string `json:"case_number"`
	DebtorName     string `json:"debtor_name"`
	DebtRemaining  int64  `json:"debt_remaining"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	Priority       string `json:"priority"`
	DueDate        string `json:"due_date"`
	LatestActivity string `json:"latest_activity"`
}

func toCaseRow(c service.CaseSummary) caseRowDTO {
	latest := service.NoActivity
	if c.LatestActivity != nil {
		latest = c.LatestActivity.UTC().Format(time.RFC3339)
	}
	return caseRowDTO{
		ID:             c.ID,
		CaseNumber:     c.CaseNumber,
		DebtorName:     c.DebtorName,
		DebtRemaining:  c.DebtRemaining,
		Currency:       c.Currency,
		Status:         string(c.Status),
		Priority:       string(c.Priority),
		DueDate:        formatDate(c.DueDate),
		LatestActivity: latest,
	}
}

type caseDTO struct {
	ID            string  `json:"id"`
	CaseNumber    string  `json:"case_number"`
	Status        string  `json:"status"`
	Priority      string  `json:"priority"`
	DebtAmount    int64   `json:"debt_amount"`
	DebtRemaining int64   `json:"debt_remaining"`
	Currency      string  `json:"currency"`
	DueDate       string  `json:"due_date"`
	CreatedAt     string  `json:"created_at"`
	Description   *string `json:"description"`
	DisputeReason *string `json:"dispute_reason"`
	CreditorName  *string `json:"creditor_name"`
	DebtorID      *string `json:"debtor_id"`
}

func toCaseDTO(c domain.Case) caseDTO {
	return caseDTO{
		ID:            c.ID,
		CaseNumber:    c.CaseNumber,
		Status:        string(c.Status),
		Priority:      string(c.Priority),
		DebtAmount:    c.DebtAmount,
		DebtRemaining: c.DebtRemaining,
		Currency:      c.Currency,
		DueDate:       formatDate(c.DueDate),
		CreatedAt:     formatTime(c.CreatedAt),
		Description:   c.Description,
		DisputeReason: c.DisputeReason,
		CreditorName:  c.CreditorName,
		DebtorID:      c.DebtorID,
	}
}

type debtorDTO struct {
	ID                 string  `json:"id"`
	FirstName          string  `json:"first_name"`
	LastName           string  `json:"last_name"`
	Email              *string `json:"email"`
	Phone              *string `json:"phone_number"`
	Nationality        *string `json:"nationality"`
	Language           *string `json:"language"`
	Status             *string `json:"status"`
	TotalDebtAmount    int64   `json:"total_debt_amount"`
	TotalDebtRemaining int64   `json:"total_debt_remaining"`
}

func toDebtorDTO(d *domain.Debtor) *debtorDTO {
	if d == nil {
		return nil
	}
	return &debtorDTO{
		ID:                 d.ID,
		FirstName:          d.FirstName,
		LastName:           d.LastName,
		Email:              d.Email,
		Phone:              d.Phone,
		Nationality:        d.Nationality,
		Language:           d.Language,
		Status:             d.Status,
		TotalDebtAmount:    d.TotalDebtAmount,
		TotalDebtRemaining: d.TotalDebtRemaining,
	}
}

type communicationDTO struct {
	ID        string `json:"id"`
	Channel   string `json:"channel"`
	Direction string `json:"direction"`
	Status    string `json:"status"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func toCommunicationDTO(c domain.Communication) communicationDTO {
	return communicationDTO{
		ID:        c.ID,
		Channel:   string(c.Channel),
		Direction: string(c.Direction),
		Status:    string(c.Status),
		Content:   c.Content,
		CreatedAt: formatTime(c.CreatedAt),
	}
}

type attachmentDTO struct {
	ID          string  `json:"id"`
	FileName    string  `json:"file_name"`
	Description *string `json:"description"`
	CreatedAt   string  `json:"created_at"`
}

func toAttachmentDTO(a domain.Attachment) attachmentDTO {
	return attachmentDTO{
		ID:          a.ID,
		FileName:    a.FileName,
		Description: a.Description,
		CreatedAt:   formatTime(a.CreatedAt),
	}
}

type warningDTO struct {
	Message       string `json:"message"`
	DisputeReason string `json:"dispute_reason"`
}

type caseDetailDTO struct {
	Case           caseDTO            `json:"case"`
	Debtor         *debtorDTO         `json:"debtor"`
	Communications []communicationDTO `json:"communications"`
	Attachments    []attachmentDTO    `json:"attachments"`
	Warning        *warningDTO        `json:"warning"`
}

func toCaseDetailDTO(d *service.CaseDetail) caseDetailDTO {
	out := caseDetailDTO{
		Case:           toCaseDTO(d.Case),
		Debtor:         toDebtorDTO(d.Debtor),
		Communications: make([]communicationDTO, 0, len(d.Communications)),
		Attachments:    make([]attachmentDTO, 0, len(d.Attachments)),
	}
	for _, c := range d.Communications {
		out.Communications = append(out.Communications, toCommunicationDTO(c))
	}
	for _, a := range d.Attachments {
		out.Attachments = append(out.Attachments, toAttachmentDTO(a))
	}
	if d.Warning != nil {
		out.Warning = &warningDTO{Message: d.Warning.Message, DisputeReason: d.Warning.DisputeReason}
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (h *Handler) listCases(w http.ResponseWriter, r *http.Request) {
	q, err := ParseCaseListQuery(r, h.cases)
	if err != nil {
		Fail(w, r, err, "cases")
		return
	}

	rows, err := h.cases.ListCases(r.Context(), q)
	if err != nil {
		Fail(w, r, err, "cases")
		return
	}

	out := make([]caseRowDTO, 0, len(rows))
	for _, c := range rows {
		out = append(out, toCaseRow(c))
	}
	Success(w, "", out)
}

func (h *Handler) getCase(w http.ResponseWriter, r *http.Request) {
	detail, err := h.cases.GetCaseDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Fail(w, r, err, "case")
		return
	}
	Success(w, "", toCaseDetailDTO(detail))
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	to, err := ValidateStatusRequest(r)
	if err != nil {
		Fail(w, r, err, "case")
		return
	}

	change, err := h.cases.ChangeStatus(r.Context(), chi.URLParam(r, "id"), to, userID)
	if err != nil {
		Fail(w, r, err, "case")
		return
	}

	Success(w, "status updated", map[string]string{
		"case_id": change.CaseID,
		"from":    string(change.From),
		"to":      string(change.To),
	})
}

func (h *Handler) addCommunication(w http.ResponseWriter, r *http.Request) {
	channel, content, err := ValidateCommunicationRequest(r)
	if err != nil {
		Fail(w, r, err, "case")
		return
	}

	c, err := h.cases.AddCommunication(r.Context(), chi.URLParam(r, "id"), channel, content)
	if err != nil {
		Fail(w, r, err, "case")
		return
	}
	SuccessCreated(w, "communication added", toCommunicationDTO(*c))
}
