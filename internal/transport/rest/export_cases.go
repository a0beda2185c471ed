package rest

import (
	"net/http"

	"debtster-dashboard/internal/transport/auth"
)

func (h *Handler) exportCases(w http.ResponseWriter, r *http.Request) {
	fields, q, err := ValidateExportRequest(r, h.cases)
	if err != nil {
		Fail(w, r, err, "export")
		return
	}

	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportID, err := h.exporter.StartCasesExport(r.Context(), q, fields, userID)
	if err != nil {
		Fail(w, r, err, "export")
		return
	}

	SuccessAccepted(w, "export queued", map[string]interface{}{
		"export_id": exportID,
	})
}
