package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/shelfd"
)

// Envelope is the response shape for mutating operations.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the response shape for all failures. Fields lists the
// offending form fields on validation errors.
type ErrorResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, ErrorResponse{Status: "error", Message: message})
}

// HandleError maps a service error onto the stable error envelope. Every
// error the handlers see passes through here; internal detail is logged
// but never leaked to the caller.
func HandleError(w http.ResponseWriter, err error) {
	var validationErr *shelfd.ValidationError
	if errors.As(err, &validationErr) {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Status:  "error",
			Message: validationErr.Error(),
			Fields:  validationErr.Fields,
		})
		return
	}

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, shelfd.ErrNotFound):
		WriteError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, shelfd.ErrForbidden):
		WriteError(w, http.StatusForbidden, "record does not belong to you")
	case errors.Is(err, shelfd.ErrUnsupportedMediaType):
		WriteError(w, http.StatusBadRequest, "unsupported media type")
	case errors.Is(err, shelfd.ErrPayloadTooLarge), errors.As(err, &maxBytesErr):
		WriteError(w, http.StatusBadRequest, "uploaded file is too large")
	case errors.Is(err, shelfd.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid input")
	default:
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
