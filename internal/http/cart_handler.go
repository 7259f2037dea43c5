package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/go-chi/chi/v5"
)

type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CartEventRequest struct {
	Event string `json:"event"`
}

type SelectionResponse struct {
	Selected []string `json:"selected"`
}

type ToggleResponse struct {
	LineID   string `json:"line_id"`
	Selected bool   `json:"selected"`
}

// GET /api/v1/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cart.Snapshot())
}

// POST /api/v1/cart/events
func (h *Handler) CartEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CartEventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	event, err := cart.ParseEvent(req.Event)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_event", err.Error())
		return
	}

	if err := h.cart.HandleEvent(ctx, event); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.cart.Snapshot())
}

// POST /api/v1/cart/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		respondError(w, http.StatusBadRequest, "missing_product_id", "product_id is required")
		return
	}

	if err := h.cart.AddLine(ctx, req.ProductID, req.Quantity); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.cart.Snapshot())
}

// PUT /api/v1/cart/items/{line_id}
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lineID := chi.URLParam(r, "line_id")
	var req UpdateQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	if err := h.cart.UpdateLineQuantity(ctx, lineID, req.Quantity); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.cart.Snapshot())
}

// DELETE /api/v1/cart/items/{line_id}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.cart.RemoveLine(ctx, chi.URLParam(r, "line_id")); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.cart.Snapshot())
}

// DELETE /api/v1/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.cart.Clear(ctx); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.cart.Snapshot())
}

// GET /api/v1/cart/selection
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, SelectionResponse{Selected: nonNil(h.selection.Selected())})
}

// POST /api/v1/cart/selection/{line_id}
func (h *Handler) ToggleLine(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "line_id")
	selected, err := h.selection.Toggle(r.Context(), lineID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ToggleResponse{LineID: lineID, Selected: selected})
}

// POST /api/v1/cart/selection/all
func (h *Handler) ToggleAll(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, SelectionResponse{Selected: nonNil(h.selection.ToggleAll(r.Context()))})
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
