package checkout

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/voucher"
	"github.com/google/uuid"
)

// resolveLines picks the working set for the mode. With fresh set, cart
// and selected modes reload the cart first; direct mode never reads it.
func (s *CheckoutServiceImpl) resolveLines(ctx context.Context, req Request, fresh bool) ([]domain.CartLine, error) {
	switch req.Mode {
	case domain.ModeDirect:
		return directLines(req.Direct)

	case domain.ModeCart, domain.ModeSelected:
		if fresh {
			if err := s.cart.Load(ctx); err != nil {
				return nil, fmt.Errorf("reload cart before checkout: %w", err)
			}
		}
		snap := s.cart.Snapshot()
		if req.Mode == domain.ModeCart {
			lines := snap.Lines()
			if len(lines) == 0 {
				return nil, domain.ErrEmptyCart
			}
			return lines, nil
		}
		lines := s.selection.SelectedIn(snap)
		if len(lines) == 0 {
			return nil, domain.ErrEmptySelection
		}
		return lines, nil
	}
	return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidCheckout, req.Mode)
}

func directLines(item *DirectItem) ([]domain.CartLine, error) {
	if item == nil || item.ProductID == "" {
		return nil, fmt.Errorf("%w: direct checkout needs a product", domain.ErrInvalidCheckout)
	}
	if item.Quantity < 1 {
		return nil, fmt.Errorf("direct checkout: %w", domain.ErrInvalidQuantity)
	}
	if item.UnitPrice < 0 {
		return nil, fmt.Errorf("%w: negative unit price", domain.ErrInvalidCheckout)
	}
	return []domain.CartLine{{
		ProductID: item.ProductID,
		EventID:   item.EventID,
		Name:      item.Name,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
	}}, nil
}

// draft recomputes the totals from lines and, when a code is given, runs
// the voucher engine against that fresh total. On a voucher rejection the
// draft is still returned with no discount.
func (s *CheckoutServiceImpl) draft(ctx context.Context, req Request, lines []domain.CartLine) (domain.CheckoutDraft, error) {
	d := domain.CheckoutDraft{
		Mode:            req.Mode,
		Lines:           lines,
		ShippingAddress: req.ShippingAddress,
		OriginalTotal:   domain.Subtotal(lines),
	}
	d.ApplyDiscount(0)

	if req.VoucherCode == "" {
		return d, nil
	}
	applied, err := s.vouchers.Apply(ctx, req.VoucherCode, voucher.OrderOf(lines))
	if err != nil {
		return d, err
	}
	d.Voucher = &applied
	d.ApplyDiscount(applied.Discount)
	return d, nil
}

func purchaseRequest(d domain.CheckoutDraft, key string) domain.PurchaseRequest {
	req := domain.PurchaseRequest{
		Mode:            d.Mode,
		ShippingAddress: d.ShippingAddress,
		Voucher:         d.Voucher,
		IdempotencyKey:  key,
	}
	if d.Mode == domain.ModeDirect {
		req.ProductID = d.Lines[0].ProductID
		req.Quantity = d.Lines[0].Quantity
		return req
	}
	req.Items = make([]domain.PurchaseItem, 0, len(d.Lines))
	for _, l := range d.Lines {
		req.Items = append(req.Items, domain.PurchaseItem{
			LineID:    l.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return req
}

func advance(status *domain.CheckoutStatus, to domain.CheckoutStatus) error {
	if !domain.CanTransitionTo(*status, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, *status, to)
	}
	*status = to
	return nil
}

func newIdempotencyKey() string {
	return uuid.NewString()
}
