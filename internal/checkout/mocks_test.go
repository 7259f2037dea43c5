package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/voucher"
)

type MockCreds struct {
	token   string
	subject string
}

func (m MockCreds) Token() (string, bool) { return m.token, m.token != "" }
func (m MockCreds) Subject() string       { return m.subject }

// MockCart serves Server on every Load, like a remote cart that may have
// changed since the last render.
type MockCart struct {
	mu        sync.Mutex
	Server    []domain.CartLine
	snap      domain.CartSnapshot
	LoadErr   error
	LoadCalls int
}

func (m *MockCart) Load(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadCalls++
	if m.LoadErr != nil {
		return m.LoadErr
	}
	m.snap = domain.NewCartSnapshot(m.Server, time.Now())
	return nil
}

func (m *MockCart) Snapshot() domain.CartSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

type MockSelection struct {
	IDs map[string]bool
}

func (m MockSelection) SelectedIn(snap domain.CartSnapshot) []domain.CartLine {
	var out []domain.CartLine
	for _, l := range snap.Lines() {
		if m.IDs[l.ID] {
			out = append(out, l)
		}
	}
	return out
}

type MockStock struct {
	Available map[string]int // missing product = unverifiable
	Validated [][]domain.CartLine
}

func (m *MockStock) ValidateAll(_ context.Context, lines []domain.CartLine) domain.StockReport {
	m.Validated = append(m.Validated, lines)
	var report domain.StockReport
	for _, l := range lines {
		c := domain.StockCheck{LineID: l.ID, ProductID: l.ProductID, Name: l.Name, Requested: l.Quantity}
		avail, ok := m.Available[l.ProductID]
		switch {
		case !ok:
			c.Status = domain.StockUnverifiable
		case avail == 0:
			c.Status = domain.StockUnavailable
		case avail < l.Quantity:
			c.Status = domain.StockInsufficient
			c.Available = avail
		default:
			c.Status = domain.StockSufficient
			c.Available = avail
		}
		report.Checks = append(report.Checks, c)
	}
	return report
}

type MockVouchers struct {
	Vouchers map[string]domain.Voucher
	Orders   []voucher.Order
}

func (m *MockVouchers) Apply(_ context.Context, code string, order voucher.Order) (domain.AppliedVoucher, error) {
	m.Orders = append(m.Orders, order)
	v, ok := m.Vouchers[code]
	if !ok {
		return domain.AppliedVoucher{}, domain.Rejected(domain.ReasonNotFound, "voucher %q not found", code)
	}
	discount, err := voucher.Evaluate(v, order, time.Now())
	if err != nil {
		return domain.AppliedVoucher{}, err
	}
	return domain.AppliedVoucher{ID: v.ID, Code: v.Code, Discount: discount, OriginalAmount: order.Subtotal}, nil
}

type MockPurchases struct {
	FromCart   []domain.PurchaseRequest
	Direct     []domain.PurchaseRequest
	Payments   []string
	CreateErr  error
	PaymentErr error
}

func (m *MockPurchases) CreateFromCart(_ context.Context, req domain.PurchaseRequest) (domain.Purchase, error) {
	if m.CreateErr != nil {
		return domain.Purchase{}, m.CreateErr
	}
	m.FromCart = append(m.FromCart, req)
	return domain.Purchase{ID: "purchase-1", Status: "pending"}, nil
}

func (m *MockPurchases) CreateDirect(_ context.Context, req domain.PurchaseRequest) (domain.Purchase, error) {
	if m.CreateErr != nil {
		return domain.Purchase{}, m.CreateErr
	}
	m.Direct = append(m.Direct, req)
	return domain.Purchase{ID: "purchase-direct", Status: "pending"}, nil
}

func (m *MockPurchases) InitiatePayment(_ context.Context, purchaseID string) (domain.Payment, error) {
	if m.PaymentErr != nil {
		return domain.Payment{}, m.PaymentErr
	}
	m.Payments = append(m.Payments, purchaseID)
	return domain.Payment{PurchaseID: purchaseID, InvoiceURL: "https://pay.example.com/" + purchaseID}, nil
}

type MockSignal struct {
	Sent []domain.Invalidation
	Err  error
}

func (m *MockSignal) Broadcast(_ context.Context, inv domain.Invalidation) (domain.Invalidation, error) {
	inv.ID = "inv-1"
	m.Sent = append(m.Sent, inv)
	return inv, m.Err
}
