package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/gateway"
)

type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string, details ...string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// handleError maps the error taxonomy to HTTP status codes.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *domain.ValidationError
		stock      *domain.StockError
		remote     *gateway.StatusError
	)

	switch {
	case errors.As(err, &stock):
		respondError(w, http.StatusConflict, "stock_blocked", "checkout blocked by stock", stock.Messages()...)
	case errors.As(err, &validation):
		if validation.Reason == domain.ReasonNotFound {
			respondError(w, http.StatusNotFound, "voucher_not_found", validation.Error())
			return
		}
		respondError(w, http.StatusUnprocessableEntity, "voucher_"+string(validation.Reason), validation.Error(), validation.Message)
	case errors.Is(err, domain.ErrAuthRequired):
		respondError(w, http.StatusUnauthorized, "auth_required", "login required")
	case errors.Is(err, domain.ErrRemoteMutationFailed):
		respondError(w, http.StatusBadGateway, "remote_mutation_failed", "cart change was not saved; cart reloaded", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrValidationFailed):
		respondError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, domain.ErrEmptySelection):
		respondError(w, http.StatusBadRequest, "empty_selection", err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, domain.ErrInvalidCheckout):
		respondError(w, http.StatusBadRequest, "invalid_checkout", err.Error())
	case errors.Is(err, domain.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "upstream timed out")
	case errors.As(err, &remote):
		respondError(w, http.StatusBadGateway, "upstream_error", remote.Error())
	default:
		slog.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
