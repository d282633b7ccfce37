package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/model"
)

// writeJSON serializes payload with the given status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps the service error taxonomy onto HTTP statuses. The
// mapping lives here so services never reason about HTTP.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrQuotaExceeded):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, model.ErrFileSizeExceeded), errors.Is(err, model.ErrDurationExceeded):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, model.ErrConflict), errors.Is(err, model.ErrConflictingJob), errors.Is(err, model.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, model.ErrUpstream):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
