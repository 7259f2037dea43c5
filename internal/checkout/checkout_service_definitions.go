// Package checkout turns a cart, a selected subset of it, or a single
// buy-now item into a purchase and a payment redirect.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/voucher"
)

type CartSource interface {
	Load(ctx context.Context) error
	Snapshot() domain.CartSnapshot
}

type Selection interface {
	SelectedIn(snap domain.CartSnapshot) []domain.CartLine
}

type StockValidator interface {
	ValidateAll(ctx context.Context, lines []domain.CartLine) domain.StockReport
}

type VoucherApplier interface {
	Apply(ctx context.Context, code string, order voucher.Order) (domain.AppliedVoucher, error)
}

type Purchases interface {
	CreateFromCart(ctx context.Context, req domain.PurchaseRequest) (domain.Purchase, error)
	CreateDirect(ctx context.Context, req domain.PurchaseRequest) (domain.Purchase, error)
	InitiatePayment(ctx context.Context, purchaseID string) (domain.Payment, error)
}

type Broadcaster interface {
	Broadcast(ctx context.Context, inv domain.Invalidation) (domain.Invalidation, error)
}

type Credentials interface {
	Token() (string, bool)
	Subject() string
}

// DirectItem is the single line of a buy-now checkout.
type DirectItem struct {
	ProductID string `json:"product_id"`
	EventID   string `json:"event_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type Request struct {
	Mode            domain.CheckoutMode `json:"mode"`
	VoucherCode     string              `json:"voucher_code,omitempty"`
	ShippingAddress domain.Address      `json:"shipping_address"`
	Direct          *DirectItem         `json:"direct,omitempty"`
	IdempotencyKey  string              `json:"idempotency_key,omitempty"`
}

type Result struct {
	Status         domain.CheckoutStatus `json:"status"`
	Draft          domain.CheckoutDraft  `json:"draft"`
	Purchase       domain.Purchase       `json:"purchase"`
	Payment        domain.Payment        `json:"payment"`
	IdempotencyKey string                `json:"idempotency_key"`
	Warnings       []string              `json:"warnings,omitempty"`
}

// pendingTTL bounds how long a purchase that never completes stays tracked.
const pendingTTL = 24 * time.Hour

type pendingPurchase struct {
	subject    string
	productIDs []string
	status     domain.CheckoutStatus
	createdAt  time.Time
}

type CheckoutServiceImpl struct {
	creds     Credentials
	cart      CartSource
	selection Selection
	stock     StockValidator
	vouchers  VoucherApplier
	purchases Purchases
	signal    Broadcaster
	now       func() time.Time
	newKey    func() string
	ttl       time.Duration

	mu      sync.Mutex
	pending map[string]*pendingPurchase
}

type Deps struct {
	Credentials Credentials
	Cart        CartSource
	Selection   Selection
	Stock       StockValidator
	Vouchers    VoucherApplier
	Purchases   Purchases
	Signal      Broadcaster
}

func NewCheckoutService(deps Deps) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		creds:     deps.Credentials,
		cart:      deps.Cart,
		selection: deps.Selection,
		stock:     deps.Stock,
		vouchers:  deps.Vouchers,
		purchases: deps.Purchases,
		signal:    deps.Signal,
		now:       time.Now,
		newKey:    newIdempotencyKey,
		ttl:       pendingTTL,
		pending:   make(map[string]*pendingPurchase),
	}
}
