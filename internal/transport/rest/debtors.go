package rest

import "net/http"

func (h *Handler) createDebtor(w http.ResponseWriter, r *http.Request) {
	in, err := ValidateDebtorRequest(r)
	if err != nil {
		Fail(w, r, err, "debtor")
		return
	}

	d, c, err := h.debtors.CreateDebtor(r.Context(), in)
	if err != nil {
		Fail(w, r, err, "debtor")
		return
	}

	SuccessCreated(w, "debtor created", map[string]any{
		"debtor": toDebtorDTO(d),
		"case":   toCaseDTO(*c),
	})
}
