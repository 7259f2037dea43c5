package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

// PreviewResponse carries the draft even when the voucher was rejected, so
// the UI can show undiscounted totals next to the reason.
type PreviewResponse struct {
	Draft        domain.CheckoutDraft `json:"draft"`
	VoucherError *ErrorResponse       `json:"voucher_error,omitempty"`
}

type StatusResponse struct {
	PurchaseID string                `json:"purchase_id"`
	Status     domain.CheckoutStatus `json:"status"`
}

type DeactivateResponse struct {
	Deactivated int `json:"deactivated"`
}

// GET /api/v1/vouchers?type=
func (h *Handler) ListVouchers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	vouchers, err := h.vouchers.List(ctx, r.URL.Query().Get("type"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if vouchers == nil {
		vouchers = []domain.Voucher{}
	}
	respondJSON(w, http.StatusOK, vouchers)
}

// POST /api/v1/vouchers/maintenance/deactivate-exhausted
//
// Partial failures still report how many vouchers were switched off.
func (h *Handler) DeactivateExhausted(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	n, err := h.vouchers.DeactivateExhausted(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "deactivate exhausted vouchers", "deactivated", n, "error", err)
		respondError(w, http.StatusBadGateway, "partial_failure", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, DeactivateResponse{Deactivated: n})
}

// POST /api/v1/checkout/preview
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req checkout.Request
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	draft, err := h.checkout.Preview(ctx, req)
	var rejected *domain.ValidationError
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, PreviewResponse{Draft: draft})
	case errors.As(err, &rejected):
		respondJSON(w, http.StatusOK, PreviewResponse{
			Draft: draft,
			VoucherError: &ErrorResponse{
				Error: rejected.Message,
				Code:  "voucher_" + string(rejected.Reason),
			},
		})
	default:
		handleError(w, r, err)
	}
}

// POST /api/v1/checkout
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req checkout.Request
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	res, err := h.checkout.Submit(ctx, req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// GET /api/v1/checkout/{purchase_id}
func (h *Handler) CheckoutStatus(w http.ResponseWriter, r *http.Request) {
	purchaseID := chi.URLParam(r, "purchase_id")
	status, ok := h.checkout.Status(purchaseID)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "unknown purchase")
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{PurchaseID: purchaseID, Status: status})
}

// POST /api/v1/checkout/{purchase_id}/complete
//
// Called by the payment return page. The invalidation is returned even when
// the cart reload or the outbox write failed.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	inv, err := h.checkout.Complete(ctx, chi.URLParam(r, "purchase_id"))
	if err != nil {
		if errors.Is(err, domain.ErrIllegalTransition) || errors.Is(err, domain.ErrInvalidCheckout) {
			handleError(w, r, err)
			return
		}
		slog.WarnContext(ctx, "purchase completed with errors", "purchase_id", inv.PurchaseID, "error", err)
	}
	respondJSON(w, http.StatusOK, inv)
}
