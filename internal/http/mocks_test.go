package http

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/session"
)

type MockCart struct {
	mu     sync.Mutex
	lines  []domain.CartLine
	err    error
	events []cart.Event
	added  []string
}

func (m *MockCart) Snapshot() domain.CartSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.NewCartSnapshot(m.lines, time.Unix(0, 0).UTC())
}

func (m *MockCart) AddLine(_ context.Context, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	if m.err != nil {
		return m.err
	}
	m.added = append(m.added, productID)
	m.lines = append(m.lines, domain.CartLine{ID: "line-" + productID, ProductID: productID, Quantity: quantity, UnitPrice: 100})
	return nil
}

func (m *MockCart) UpdateLineQuantity(_ context.Context, lineID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for i := range m.lines {
		if m.lines[i].ID == lineID {
			m.lines[i].Quantity = quantity
		}
	}
	return nil
}

func (m *MockCart) RemoveLine(_ context.Context, lineID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	kept := m.lines[:0]
	for _, l := range m.lines {
		if l.ID != lineID {
			kept = append(kept, l)
		}
	}
	m.lines = kept
	return nil
}

func (m *MockCart) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = nil
	return m.err
}

func (m *MockCart) HandleEvent(_ context.Context, e cart.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

type MockSelection struct {
	selected map[string]bool
	known    map[string]bool
	resets   int
}

func (m *MockSelection) Toggle(_ context.Context, lineID string) (bool, error) {
	if !m.known[lineID] {
		return false, domain.ErrNotFound
	}
	m.selected[lineID] = !m.selected[lineID]
	return m.selected[lineID], nil
}

func (m *MockSelection) ToggleAll(context.Context) []string {
	for id := range m.known {
		m.selected[id] = true
	}
	return m.Selected()
}

func (m *MockSelection) Selected() []string {
	var out []string
	for id, on := range m.selected {
		if on {
			out = append(out, id)
		}
	}
	return out
}

func (m *MockSelection) Reset() {
	m.resets++
	m.selected = map[string]bool{}
}

type MockVouchers struct {
	vouchers    []domain.Voucher
	listedType  string
	deactivated int
	err         error
}

func (m *MockVouchers) List(_ context.Context, voucherType string) ([]domain.Voucher, error) {
	m.listedType = voucherType
	return m.vouchers, m.err
}

func (m *MockVouchers) DeactivateExhausted(context.Context) (int, error) {
	return m.deactivated, m.err
}

type MockCheckout struct {
	draft      domain.CheckoutDraft
	result     *checkout.Result
	inv        domain.Invalidation
	err        error
	status     map[string]domain.CheckoutStatus
	lastReq    checkout.Request
	completeID string
}

func (m *MockCheckout) Preview(_ context.Context, req checkout.Request) (domain.CheckoutDraft, error) {
	m.lastReq = req
	return m.draft, m.err
}

func (m *MockCheckout) Submit(_ context.Context, req checkout.Request) (*checkout.Result, error) {
	m.lastReq = req
	return m.result, m.err
}

func (m *MockCheckout) Complete(_ context.Context, purchaseID string) (domain.Invalidation, error) {
	m.completeID = purchaseID
	return m.inv, m.err
}

func (m *MockCheckout) Status(purchaseID string) (domain.CheckoutStatus, bool) {
	s, ok := m.status[purchaseID]
	return s, ok
}

type MockSession struct {
	creds *session.Credentials
}

func (m *MockSession) Set(c session.Credentials) { m.creds = &c }
func (m *MockSession) Clear()                    { m.creds = nil }

func (m *MockSession) Subject() string {
	if m.creds == nil {
		return ""
	}
	return m.creds.Subject
}

func (m *MockSession) Token() (string, bool) {
	if m.creds == nil {
		return "", false
	}
	return m.creds.AccessToken, true
}

type MockState struct {
	profiles map[string]domain.Profile
	sidebar  map[string]bool
	deleted  []string
	err      error
}

func NewMockState() *MockState {
	return &MockState{profiles: map[string]domain.Profile{}, sidebar: map[string]bool{}}
}

func (m *MockState) SaveProfile(_ context.Context, key string, p domain.Profile) error {
	if m.err != nil {
		return m.err
	}
	m.profiles[key] = p
	return nil
}

func (m *MockState) LoadProfile(_ context.Context, key string) (*domain.Profile, error) {
	p, ok := m.profiles[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &p, nil
}

func (m *MockState) SetSidebarOpen(_ context.Context, key string, open bool) error {
	m.sidebar[key] = open
	return m.err
}

func (m *MockState) SidebarOpen(_ context.Context, key string) (bool, error) {
	return m.sidebar[key], m.err
}

func (m *MockState) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.profiles, key)
	delete(m.sidebar, key)
	return m.err
}
