// Package voucher validates voucher codes against an order and computes the
// discount. Evaluate is pure; Engine adds the remote lookups around it.
package voucher

import (
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Order is what a voucher is checked against.
type Order struct {
	Subtotal int64
	Lines    []domain.CartLine
}

func OrderOf(lines []domain.CartLine) Order {
	return Order{Subtotal: domain.Subtotal(lines), Lines: lines}
}

// Evaluate returns the discount v grants on order at now, or a
// *domain.ValidationError naming the first failed rule. Rules are checked
// in order: active (including the usage ceiling), validity window, minimum
// order value, scope.
func Evaluate(v domain.Voucher, order Order, now time.Time) (int64, error) {
	if !v.Active {
		return 0, domain.Rejected(domain.ReasonInactive, "voucher %s is not active", v.Code)
	}
	if v.Exhausted() {
		return 0, domain.Rejected(domain.ReasonInactive, "voucher %s reached its usage limit (%d/%d)", v.Code, v.UsedCount, v.MaxUsage)
	}
	if v.ValidFrom != nil && now.Before(*v.ValidFrom) {
		return 0, domain.Rejected(domain.ReasonNotYetValid, "valid from %s", v.ValidFrom.Format(time.RFC3339))
	}
	if v.ValidUntil != nil && now.After(*v.ValidUntil) {
		return 0, domain.Rejected(domain.ReasonExpired, "expired at %s", v.ValidUntil.Format(time.RFC3339))
	}
	if order.Subtotal < v.MinOrderValue {
		return 0, domain.Rejected(domain.ReasonBelowMinimum, "min %d, current %d", v.MinOrderValue, order.Subtotal)
	}
	if !inScope(v.Scope, order.Lines) {
		return 0, domain.Rejected(domain.ReasonOutOfScope, "voucher %s does not apply to these items", v.Code)
	}
	return Discount(v, order.Subtotal)
}

// Discount computes the raw discount on subtotal, clamped to [0, subtotal].
// Percentages are truncated to whole currency units.
func Discount(v domain.Voucher, subtotal int64) (int64, error) {
	var amount int64
	switch v.DiscountType {
	case domain.DiscountFixedAmount:
		amount = v.DiscountValue.IntPart()
	case domain.DiscountPercentage:
		amount = decimal.NewFromInt(subtotal).Mul(v.DiscountValue).Div(hundred).Truncate(0).IntPart()
	default:
		return 0, fmt.Errorf("%w: unknown discount type %q", domain.ErrValidationFailed, v.DiscountType)
	}
	return clamp(amount, subtotal), nil
}

func clamp(amount, subtotal int64) int64 {
	if amount < 0 {
		return 0
	}
	if amount > subtotal {
		return subtotal
	}
	return amount
}

func inScope(scope domain.VoucherScope, lines []domain.CartLine) bool {
	if scope.ApplyToAll {
		return true
	}
	for _, l := range lines {
		if scope.Covers(l.ProductID, l.EventID) {
			return true
		}
	}
	return false
}
