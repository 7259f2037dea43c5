package domain

import "time"

type CheckoutMode string

const (
	ModeCart     CheckoutMode = "cart"
	ModeSelected CheckoutMode = "selected"
	ModeDirect   CheckoutMode = "direct"
)

func (m CheckoutMode) Valid() bool {
	switch m {
	case ModeCart, ModeSelected, ModeDirect:
		return true
	}
	return false
}

type Address struct {
	Recipient  string `json:"recipient"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// CheckoutDraft is the ephemeral totals computation for one checkout attempt.
type CheckoutDraft struct {
	Mode            CheckoutMode    `json:"mode"`
	Lines           []CartLine      `json:"lines"`
	ShippingAddress Address         `json:"shipping_address"`
	Voucher         *AppliedVoucher `json:"voucher,omitempty"`
	OriginalTotal   int64           `json:"original_total"`
	DiscountAmount  int64           `json:"discount_amount"`
	FinalTotal      int64           `json:"final_total"`
}

// ApplyDiscount sets the totals, clamping so the final total never goes negative.
func (d *CheckoutDraft) ApplyDiscount(discount int64) {
	if discount < 0 {
		discount = 0
	}
	if discount > d.OriginalTotal {
		discount = d.OriginalTotal
	}
	d.DiscountAmount = discount
	d.FinalTotal = d.OriginalTotal - discount
}

// ProductIDs returns the distinct product ids of the draft lines.
func (d *CheckoutDraft) ProductIDs() []string {
	seen := make(map[string]struct{}, len(d.Lines))
	var out []string
	for _, l := range d.Lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		out = append(out, l.ProductID)
	}
	return out
}

type CheckoutStatus string

const (
	CheckoutStatusDrafted         CheckoutStatus = "DRAFTED"
	CheckoutStatusStockValidated  CheckoutStatus = "STOCK_VALIDATED"
	CheckoutStatusPurchaseCreated CheckoutStatus = "PURCHASE_CREATED"
	CheckoutStatusPaymentPending  CheckoutStatus = "PAYMENT_PENDING"
	CheckoutStatusCompleted       CheckoutStatus = "COMPLETED"
	CheckoutStatusFailed          CheckoutStatus = "FAILED"
)

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusDrafted:         {CheckoutStatusStockValidated, CheckoutStatusFailed},
	CheckoutStatusStockValidated:  {CheckoutStatusPurchaseCreated, CheckoutStatusFailed},
	CheckoutStatusPurchaseCreated: {CheckoutStatusPaymentPending, CheckoutStatusFailed},
	CheckoutStatusPaymentPending:  {CheckoutStatusCompleted, CheckoutStatusFailed},
}

func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

// Profile is the minimal user profile cached on the client.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Invalidation tells inventory-displaying surfaces to refetch.
type Invalidation struct {
	ID         string    `json:"id"`
	PurchaseID string    `json:"purchase_id,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	ProductIDs []string  `json:"product_ids,omitempty"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}
