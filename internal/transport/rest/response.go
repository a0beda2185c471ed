package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"debtster-dashboard/internal/domain"
	"debtster-dashboard/internal/logger"

	"go.uber.org/zap"
)

type APIResponse struct {
	ErrorCode int         `json:"error_code"`
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
}

func Response(w http.ResponseWriter, message string, data interface{}, errorCode int, status string, httpStatus int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	response := APIResponse{
		ErrorCode: errorCode,
		Status:    status,
		Message:   message,
		Data:      data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}

func Success(w http.ResponseWriter, message string, data interface{}) {
	Response(w, message, data, 0, "success", http.StatusOK)
}

func SuccessCreated(w http.ResponseWriter, message string, data interface{}) {
	Response(w, message, data, 0, "success", http.StatusCreated)
}

func SuccessAccepted(w http.ResponseWriter, message string, data interface{}) {
	Response(w, message, data, 0, "success", http.StatusAccepted)
}

func Error(w http.ResponseWriter, message string, errorCode int, httpStatus int) {
	Response(w, message, nil, errorCode, "error", httpStatus)
}

func ErrorBadRequest(w http.ResponseWriter, message string) {
	Error(w, message, 400, http.StatusBadRequest)
}

func ErrorUnauthorized(w http.ResponseWriter, message string) {
	Error(w, message, 401, http.StatusUnauthorized)
}

func ErrorNotFound(w http.ResponseWriter, message string) {
	Error(w, message, 404, http.StatusNotFound)
}

func ErrorConflict(w http.ResponseWriter, message string) {
	Error(w, message, 409, http.StatusConflict)
}

func ErrorUnprocessable(w http.ResponseWriter, message string, field string) {
	var data interface{}
	if field != "" {
		data = map[string]string{"field": field}
	}
	Response(w, message, data, 422, "error", http.StatusUnprocessableEntity)
}

func ErrorInternal(w http.ResponseWriter, message string) {
	Error(w, message, 500, http.StatusInternalServerError)
}

func ErrorUnavailable(w http.ResponseWriter, message string) {
	Error(w, message, 503, http.StatusServiceUnavailable)
}

// Fail maps a service error onto the response envelope. what names the
// resource in not-found messages.
func Fail(w http.ResponseWriter, r *http.Request, err error, what string) {
	log := logger.FromContext(r.Context())

	var ve *domain.ValidationError
	var re *ValidationError
	switch {
	case errors.As(err, &re):
		ErrorBadRequest(w, re.Message)
	case errors.As(err, &ve):
		ErrorUnprocessable(w, ve.Message, ve.Field)
	case errors.Is(err, domain.ErrNotFound):
		ErrorNotFound(w, what+" not found")
	case errors.Is(err, domain.ErrConflict):
		ErrorConflict(w, what+" was changed by another request, reload and retry")
	case errors.Is(err, context.Canceled):
		log.Debug("request cancelled", zap.Error(err))
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		log.Error("record store unavailable", zap.Error(err))
		ErrorUnavailable(w, "record store unavailable, try again later")
	default:
		log.Error("request failed", zap.Error(err))
		ErrorInternal(w, "internal error")
	}
}
