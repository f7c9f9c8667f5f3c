package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/irgordon/insight/api/internal/core/domain"
	"github.com/irgordon/insight/api/internal/core/services"
)

// Use a single instance of Validate, it caches struct info
var validate = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// HandleError maps service errors onto HTTP responses. Internal errors are
// logged and replaced with a generic message.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErrs validator.ValidationErrors
		maxBytesErr    *http.MaxBytesError
	)

	switch {
	case errors.As(err, &validationErrs):
		fields := make([]string, 0, len(validationErrs))
		for _, fe := range validationErrs {
			fields = append(fields, strings.ToLower(fe.Field())+": "+fe.Tag())
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Validation failed", Fields: fields})
	case errors.As(err, &maxBytesErr):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Message: "Request body too large"})
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Resource not found"})
	case errors.Is(err, domain.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorResponse{Message: "Resource already exists"})
	case errors.Is(err, services.ErrCorruptDetails):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: "Stored connection details are unreadable"})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// decodeJSON reads a JSON body into dst and validates it. It writes the
// error response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			HandleError(w, r, err)
			return false
		}
		http.Error(w, `{"message": "Invalid JSON payload"}`, http.StatusBadRequest)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		HandleError(w, r, err)
		return false
	}
	return true
}
