package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tal-mizrahi/barberbook/internal/booking"
	"github.com/tal-mizrahi/barberbook/internal/model"
	"github.com/tal-mizrahi/barberbook/internal/reconcile"
	"github.com/tal-mizrahi/barberbook/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps the engine's error taxonomy onto HTTP statuses:
// ValidationError 400, NotFound 404, Conflict and invalid transition 409,
// store timeout 503, reconciler exhaustion 502.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case model.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, booking.ErrInvalidTransition):
		status = http.StatusConflict
	case storage.IsConflict(err):
		status = http.StatusConflict
	case storage.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, reconcile.ErrUnresolvable):
		status = http.StatusBadGateway
	case storage.IsUnavailable(err):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
