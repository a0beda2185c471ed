package rest

import (
	"context"
	"net/http"

	"debtster-dashboard/internal/service"
	"debtster-dashboard/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

type ExportListService interface {
	GetExports(ctx context.Context, userID int64) ([]service.ExportView, error)
	GetExport(ctx context.Context, exportID string, userID int64) (*service.ExportView, error)
}

func (h *Handler) listExports(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exports, err := h.exportList.GetExports(r.Context(), userID)
	if err != nil {
		Fail(w, r, err, "exports")
		return
	}
	if exports == nil {
		exports = []service.ExportView{}
	}

	Success(w, "", exports)
}

func (h *Handler) getExport(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportIDParam := chi.URLParam(r, "export_id")
	if exportIDParam == "" {
		ErrorBadRequest(w, "export_id is required")
		return
	}
	exportID := "exports:" + exportIDParam

	export, err := h.exportList.GetExport(r.Context(), exportID, userID)
	if err != nil {
		Fail(w, r, err, "export")
		return
	}

	Success(w, "", export)
}
