package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainErrors "github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
)

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP responses. Unknown error
// types become opaque 500s so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	var appErr *domainErrors.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
			Code:    "INTERNAL_ERROR",
			Message: "an internal error occurred",
		}})
		return
	}

	writeJSON(w, domainErrors.GetStatusCode(appErr), errorResponse{Error: errorBody{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}})
}
