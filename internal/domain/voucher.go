package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountFixedAmount DiscountType = "fixed_amount"
	DiscountPercentage  DiscountType = "percentage"
)

// VoucherScope restricts a voucher to all items or to specific products/events.
type VoucherScope struct {
	ApplyToAll bool     `json:"apply_to_all"`
	ProductIDs []string `json:"product_ids,omitempty"`
	EventIDs   []string `json:"event_ids,omitempty"`
}

// Covers reports whether a line referencing productID/eventID is in scope.
func (s VoucherScope) Covers(productID, eventID string) bool {
	if s.ApplyToAll {
		return true
	}
	for _, id := range s.ProductIDs {
		if id != "" && id == productID {
			return true
		}
	}
	for _, id := range s.EventIDs {
		if id != "" && id == eventID {
			return true
		}
	}
	return false
}

type Voucher struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	DiscountType  DiscountType    `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	MinOrderValue int64           `json:"min_order_value"`
	ValidFrom     *time.Time      `json:"valid_from,omitempty"`
	ValidUntil    *time.Time      `json:"valid_until,omitempty"`
	MaxUsage      int             `json:"max_usage"`
	UsedCount     int             `json:"used_count"`
	Active        bool            `json:"is_active"`
	Scope         VoucherScope    `json:"scope"`
	VoucherType   string          `json:"voucher_type,omitempty"`
}

// Exhausted is true when a usage ceiling exists and has been reached.
func (v Voucher) Exhausted() bool {
	return v.MaxUsage > 0 && v.UsedCount >= v.MaxUsage
}

// MatchesCode compares codes case-insensitively, exact otherwise.
func (v Voucher) MatchesCode(code string) bool {
	return strings.EqualFold(strings.TrimSpace(v.Code), strings.TrimSpace(code))
}

// AppliedVoucher is what a checkout carries to the server for re-validation.
// Discount is advisory; the server decides the charged amount.
type AppliedVoucher struct {
	ID             string `json:"id"`
	Code           string `json:"code"`
	Discount       int64  `json:"discount_amount"`
	OriginalAmount int64  `json:"original_amount"`
}
