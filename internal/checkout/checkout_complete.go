package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const reasonPurchaseCompleted = "purchase_completed"

// Complete is called when the user returns from the payment provider. It
// forces a cart reload and broadcasts an inventory invalidation. Both are
// attempted even if one fails.
func (s *CheckoutServiceImpl) Complete(ctx context.Context, purchaseID string) (domain.Invalidation, error) {
	if purchaseID == "" {
		return domain.Invalidation{}, fmt.Errorf("%w: purchase id is required", domain.ErrInvalidCheckout)
	}

	s.mu.Lock()
	p, tracked := s.pending[purchaseID]
	var productIDs []string
	subject := s.creds.Subject()
	if tracked {
		if p.status != domain.CheckoutStatusCompleted && !domain.CanTransitionTo(p.status, domain.CheckoutStatusCompleted) {
			s.mu.Unlock()
			return domain.Invalidation{}, fmt.Errorf("complete %s: %w: %s -> %s",
				purchaseID, domain.ErrIllegalTransition, p.status, domain.CheckoutStatusCompleted)
		}
		p.status = domain.CheckoutStatusCompleted
		productIDs = p.productIDs
		if p.subject != "" {
			subject = p.subject
		}
	}
	s.mu.Unlock()

	if !tracked {
		slog.InfoContext(ctx, "completing purchase not started here", "purchase_id", purchaseID)
	}

	var errs []error
	if err := s.cart.Load(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reload cart after purchase: %w", err))
	}

	inv, err := s.signal.Broadcast(ctx, domain.Invalidation{
		PurchaseID: purchaseID,
		Subject:    subject,
		ProductIDs: productIDs,
		Reason:     reasonPurchaseCompleted,
	})
	if err != nil {
		errs = append(errs, err)
	}

	s.mu.Lock()
	delete(s.pending, purchaseID)
	s.mu.Unlock()

	return inv, errors.Join(errs...)
}
