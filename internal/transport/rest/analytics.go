package rest

import (
	"net/http"

	"debtster-dashboard/internal/service"
)

func (h *Handler) coreMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.analytics.CoreMetrics(r.Context())
	if err != nil {
		Fail(w, r, err, "metrics")
		return
	}
	Success(w, "", m)
}

func (h *Handler) agingDistribution(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.analytics.AgingDistribution(r.Context())
	if err != nil {
		Fail(w, r, err, "aging")
		return
	}
	Success(w, "", buckets)
}

func (h *Handler) recoveryTrend(w http.ResponseWriter, r *http.Request) {
	g, err := service.ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		Fail(w, r, &ValidationError{Field: "granularity", Message: err.Error()}, "trend")
		return
	}

	points, err := h.analytics.RecoveryTrend(r.Context(), g)
	if err != nil {
		Fail(w, r, err, "trend")
		return
	}
	if points == nil {
		points = []service.TrendPoint{}
	}
	Success(w, "", points)
}

func (h *Handler) recoveryByPriority(w http.ResponseWriter, r *http.Request) {
	points, err := h.analytics.RecoveryByPriority(r.Context())
	if err != nil {
		Fail(w, r, err, "trend")
		return
	}
	if points == nil {
		points = []service.PriorityPoint{}
	}
	Success(w, "", points)
}
