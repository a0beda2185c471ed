package rest

import (
	"net/http"

	"debtster-dashboard/internal/service"
)

type disputeDTO struct {
	CaseID        string `json:"case_id"`
	CaseNumber    string `json:"case_number"`
	DebtorName    string `json:"debtor_name"`
	DebtRemaining int64  `json:"debt_remaining"`
	Currency      string `json:"currency"`
	DisputeReason string `json:"dispute_reason"`
	CreatedAt     string `json:"created_at"`
}

type paymentDTO struct {
	ID             string  `json:"id"`
	CaseID         *string `json:"case_id"`
	CaseNumber     *string `json:"case_number"`
	DebtorName     string  `json:"debtor_name"`
	AmountReceived int64   `json:"amount_received"`
	Currency       string  `json:"currency"`
	Method         *string `json:"method"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
}

func toPaymentDTO(p service.PaymentView) paymentDTO {
	return paymentDTO{
		ID:             p.ID,
		CaseID:         p.CaseID,
		CaseNumber:     p.CaseNumber,
		DebtorName:     p.DebtorName,
		AmountReceived: p.AmountReceived,
		Currency:       p.Currency,
		Method:         p.Method,
		Status:         string(p.Status),
		CreatedAt:      formatTime(p.CreatedAt),
	}
}

func (h *Handler) listDisputes(w http.ResponseWriter, r *http.Request) {
	disputes, err := h.cases.ListDisputes(r.Context())
	if err != nil {
		Fail(w, r, err, "disputes")
		return
	}

	out := make([]disputeDTO, 0, len(disputes))
	for _, d := range disputes {
		out = append(out, disputeDTO{
			CaseID:        d.CaseID,
			CaseNumber:    d.CaseNumber,
			DebtorName:    d.DebtorName,
			DebtRemaining: d.DebtRemaining,
			Currency:      d.Currency,
			DisputeReason: d.DisputeReason,
			CreatedAt:     formatTime(d.CreatedAt),
		})
	}
	Success(w, "", out)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		Fail(w, r, err, "payments")
		return
	}

	payments, err := h.payments.ListPayments(r.Context(), limit)
	if err != nil {
		Fail(w, r, err, "payments")
		return
	}

	out := make([]paymentDTO, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentDTO(p))
	}
	Success(w, "", out)
}
