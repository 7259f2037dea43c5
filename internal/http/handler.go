package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type CartManager interface {
	Snapshot() domain.CartSnapshot
	AddLine(ctx context.Context, productID string, quantity int) error
	UpdateLineQuantity(ctx context.Context, lineID string, quantity int) error
	RemoveLine(ctx context.Context, lineID string) error
	Clear(ctx context.Context) error
	HandleEvent(ctx context.Context, e cart.Event) error
}

type SelectionTracker interface {
	Toggle(ctx context.Context, lineID string) (bool, error)
	ToggleAll(ctx context.Context) []string
	Selected() []string
	Reset()
}

type VoucherService interface {
	List(ctx context.Context, voucherType string) ([]domain.Voucher, error)
	DeactivateExhausted(ctx context.Context) (int, error)
}

type CheckoutService interface {
	Preview(ctx context.Context, req checkout.Request) (domain.CheckoutDraft, error)
	Submit(ctx context.Context, req checkout.Request) (*checkout.Result, error)
	Complete(ctx context.Context, purchaseID string) (domain.Invalidation, error)
	Status(purchaseID string) (domain.CheckoutStatus, bool)
}

type SessionStore interface {
	Set(c session.Credentials)
	Clear()
	Subject() string
	Token() (string, bool)
}

// StateStore is the client-persisted profile and UI state.
type StateStore interface {
	SaveProfile(ctx context.Context, cartKey string, profile domain.Profile) error
	LoadProfile(ctx context.Context, cartKey string) (*domain.Profile, error)
	SetSidebarOpen(ctx context.Context, cartKey string, open bool) error
	SidebarOpen(ctx context.Context, cartKey string) (bool, error)
	Delete(ctx context.Context, cartKey string) error
}

type Handler struct {
	cart      CartManager
	selection SelectionTracker
	vouchers  VoucherService
	checkout  CheckoutService
	session   SessionStore
	state     StateStore
	timeout   time.Duration
	maxBody   int64
}

type Deps struct {
	Cart      CartManager
	Selection SelectionTracker
	Vouchers  VoucherService
	Checkout  CheckoutService
	Session   SessionStore
	State     StateStore
}

func NewHandler(deps Deps, timeout time.Duration, maxBody int64) *Handler {
	return &Handler{
		cart:      deps.Cart,
		selection: deps.Selection,
		vouchers:  deps.Vouchers,
		checkout:  deps.Checkout,
		session:   deps.Session,
		state:     deps.State,
		timeout:   timeout,
		maxBody:   maxBody,
	}
}

// Routes builds the router. Callers wrap it with otelhttp.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(h.timeout))
	r.Use(middleware.Compress(5))
	r.Use(BodyLimitMiddleware(h.maxBody))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Post("/", h.Login)
			r.Delete("/", h.Logout)
		})
		r.Route("/profile", func(r chi.Router) {
			r.Get("/", h.GetProfile)
			r.Put("/", h.SaveProfile)
		})
		r.Route("/sidebar", func(r chi.Router) {
			r.Get("/", h.GetSidebar)
			r.Put("/", h.SetSidebar)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/events", h.CartEvent)
			r.Post("/items", h.AddItem)
			r.Put("/items/{line_id}", h.UpdateQuantity)
			r.Delete("/items/{line_id}", h.RemoveItem)
			r.Get("/selection", h.GetSelection)
			r.Post("/selection/all", h.ToggleAll)
			r.Post("/selection/{line_id}", h.ToggleLine)
		})
		r.Route("/vouchers", func(r chi.Router) {
			r.Get("/", h.ListVouchers)
			r.Post("/maintenance/deactivate-exhausted", h.DeactivateExhausted)
		})
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/preview", h.Preview)
			r.Post("/", h.Submit)
			r.Get("/{purchase_id}", h.CheckoutStatus)
			r.Post("/{purchase_id}/complete", h.Complete)
		})
	})

	return r
}
