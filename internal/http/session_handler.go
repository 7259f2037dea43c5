package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/session"
)

type LoginRequest struct {
	session.Credentials
	Profile *domain.Profile `json:"profile,omitempty"`
}

type SidebarRequest struct {
	Open bool `json:"open"`
}

const guestKey = "guest"

// POST /api/v1/session
//
// Setting credentials reloads the cart through the session listeners before
// the response is written.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.AccessToken == "" || req.Subject == "" {
		respondError(w, http.StatusBadRequest, "invalid_credentials", "access_token and subject are required")
		return
	}

	h.session.Set(req.Credentials)

	if req.Profile != nil {
		if err := h.state.SaveProfile(ctx, req.Subject, *req.Profile); err != nil {
			slog.WarnContext(ctx, "failed to cache profile", "subject", req.Subject, "error", err)
		}
	}
	respondJSON(w, http.StatusOK, h.cart.Snapshot())
}

// DELETE /api/v1/session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	subject := h.session.Subject()
	h.session.Clear()
	h.selection.Reset()

	if subject != "" {
		if err := h.state.Delete(ctx, subject); err != nil {
			slog.WarnContext(ctx, "failed to wipe client state", "subject", subject, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	subject := h.session.Subject()
	if subject == "" {
		handleError(w, r, domain.ErrAuthRequired)
		return
	}

	profile, err := h.state.LoadProfile(ctx, subject)
	if errors.Is(err, cache.ErrCacheMiss) {
		respondError(w, http.StatusNotFound, "not_found", "no cached profile")
		return
	}
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// PUT /api/v1/profile
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	subject := h.session.Subject()
	if subject == "" {
		handleError(w, r, domain.ErrAuthRequired)
		return
	}

	var profile domain.Profile
	if err := decodeJSON(r, &profile); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if err := h.state.SaveProfile(ctx, subject, profile); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// GET /api/v1/sidebar
func (h *Handler) GetSidebar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	open, err := h.state.SidebarOpen(ctx, h.stateKey())
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, SidebarRequest{Open: open})
}

// PUT /api/v1/sidebar
func (h *Handler) SetSidebar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SidebarRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if err := h.state.SetSidebarOpen(ctx, h.stateKey(), req.Open); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *Handler) stateKey() string {
	if subject := h.session.Subject(); subject != "" {
		return subject
	}
	return guestKey
}
