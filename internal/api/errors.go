package api

import (
	"errors"
	"net/http"

	"github.com/example/cartelera/internal/domain/cart"
	"github.com/example/cartelera/internal/domain/event"
	"github.com/example/cartelera/internal/domain/order"
	"github.com/example/cartelera/internal/logging"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondDomainError maps command and storage errors to status codes.
// Anything unrecognised is logged and reported as a 500 without detail.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *order.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrInvalidEvent):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, order.ErrEmptyCart):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, cart.ErrOutOfStock):
		respondError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, event.ErrEventNotFound), errors.Is(err, cart.ErrLineNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
	default:
		logging.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, "internal error", http.StatusInternalServerError)
	}
}
