package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/garnizeh/interventions/pkg/models"
)

const (
	CodeUserNotFound     = "USER_NOT_FOUND"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeForbidden        = "FORBIDDEN"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeBadRequest       = "BAD_REQUEST"
	CodeInternal         = "INTERNAL_ERROR"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// errBadRequest marks request bodies that could not be decoded.
var errBadRequest = errors.New("invalid request body")

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusUnauthorized, CodeUserNotFound
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, CodeUnauthenticated
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, models.ErrValidation):
		return http.StatusUnprocessableEntity, CodeValidationFailed
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, CodeBadRequest
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.Any("err", err))
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}
