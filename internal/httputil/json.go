package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Farkhat1984/Trai-on/internal/apperr"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// WriteDomainError maps the core failure taxonomy to HTTP statuses. Unknown
// errors become a generic 500 so internals never leak to clients.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrInsufficientFunds):
		WriteError(w, http.StatusPaymentRequired, "insufficient funds")
	case errors.Is(err, apperr.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrNotApproved):
		WriteError(w, http.StatusConflict, "product is not approved")
	case errors.Is(err, apperr.ErrAlreadyReviewed):
		WriteError(w, http.StatusConflict, "already reviewed")
	case errors.Is(err, apperr.ErrAlreadyCaptured), errors.Is(err, apperr.ErrDuplicateExternalRef):
		WriteError(w, http.StatusConflict, "payment already captured")
	case errors.Is(err, apperr.ErrProvider):
		WriteError(w, http.StatusBadGateway, "external provider failure, safe to retry")
	default:
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
