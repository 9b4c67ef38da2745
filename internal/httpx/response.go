package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ayush/videotube/backend/internal/apperror"
	"github.com/ayush/videotube/backend/internal/logging"
)

// Response is the success envelope.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps data in the success envelope.
func WriteData(w http.ResponseWriter, status int, data any, message string) {
	WriteJSON(w, status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// WriteError renders err in the failure envelope. Causes are logged, never sent.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	appErr := apperror.From(err)
	status := appErr.Status()

	logger := logging.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "kind", appErr.Kind, "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "kind", appErr.Kind, "status", status, "error", err)
	}

	details := appErr.Errors
	if details == nil {
		details = []string{}
	}
	message := appErr.Message
	if status >= http.StatusInternalServerError && message == "" {
		message = http.StatusText(status)
	}

	WriteJSON(w, status, ErrorResponse{
		StatusCode: status,
		Message:    message,
		Success:    false,
		Errors:     details,
	})
}
