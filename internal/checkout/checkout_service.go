package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Preview prices req without checking stock or submitting anything. It uses
// the same totals and voucher math as Submit. A voucher rejection is
// returned together with the undiscounted draft.
func (s *CheckoutServiceImpl) Preview(ctx context.Context, req Request) (domain.CheckoutDraft, error) {
	lines, err := s.resolveLines(ctx, req, false)
	if err != nil {
		return domain.CheckoutDraft{}, err
	}
	return s.draft(ctx, req, lines)
}

// Submit runs one checkout attempt: resolve lines, re-check stock, recompute
// totals, re-validate the voucher, create the purchase and start payment.
func (s *CheckoutServiceImpl) Submit(ctx context.Context, req Request) (*Result, error) {
	if _, ok := s.creds.Token(); !ok {
		return nil, fmt.Errorf("checkout: %w", domain.ErrAuthRequired)
	}

	res := &Result{Status: domain.CheckoutStatusDrafted, IdempotencyKey: req.IdempotencyKey}
	if res.IdempotencyKey == "" {
		res.IdempotencyKey = s.newKey()
	}
	fail := func(err error) (*Result, error) {
		slog.WarnContext(ctx, "checkout failed", "mode", req.Mode, "status", res.Status, "idempotency_key", res.IdempotencyKey, "error", err)
		res.Status = domain.CheckoutStatusFailed
		return res, err
	}

	lines, err := s.resolveLines(ctx, req, true)
	if err != nil {
		return fail(err)
	}

	report := s.stock.ValidateAll(ctx, lines)
	for _, c := range report.Unverifiable() {
		res.Warnings = append(res.Warnings, c.Message())
	}
	if err := report.Err(); err != nil {
		return fail(err)
	}
	if err := advance(&res.Status, domain.CheckoutStatusStockValidated); err != nil {
		return fail(err)
	}

	// totals are recomputed from the lines just validated, never reused
	draft, err := s.draft(ctx, req, lines)
	res.Draft = draft
	if err != nil {
		return fail(err)
	}

	preq := purchaseRequest(draft, res.IdempotencyKey)
	var purchase domain.Purchase
	if req.Mode == domain.ModeDirect {
		purchase, err = s.purchases.CreateDirect(ctx, preq)
	} else {
		purchase, err = s.purchases.CreateFromCart(ctx, preq)
	}
	if err != nil {
		return fail(err)
	}
	res.Purchase = purchase
	if err := advance(&res.Status, domain.CheckoutStatusPurchaseCreated); err != nil {
		return fail(err)
	}
	s.track(purchase.ID, &pendingPurchase{
		subject:    s.creds.Subject(),
		productIDs: draft.ProductIDs(),
		status:     res.Status,
		createdAt:  s.now(),
	})

	payment, err := s.purchases.InitiatePayment(ctx, purchase.ID)
	if err != nil {
		s.setPendingStatus(purchase.ID, domain.CheckoutStatusFailed)
		return fail(err)
	}
	res.Payment = payment
	if err := advance(&res.Status, domain.CheckoutStatusPaymentPending); err != nil {
		return fail(err)
	}
	s.setPendingStatus(purchase.ID, res.Status)

	slog.InfoContext(ctx, "checkout submitted",
		"mode", req.Mode,
		"purchase_id", purchase.ID,
		"original_total", draft.OriginalTotal,
		"discount", draft.DiscountAmount,
		"final_total", draft.FinalTotal,
		"unverified_lines", len(res.Warnings))
	return res, nil
}

// track records p and forgets purchases older than the ttl, which were
// abandoned before Complete.
func (s *CheckoutServiceImpl) track(purchaseID string, p *pendingPurchase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, old := range s.pending {
		if now.Sub(old.createdAt) > s.ttl {
			delete(s.pending, id)
		}
	}
	s.pending[purchaseID] = p
}

func (s *CheckoutServiceImpl) setPendingStatus(purchaseID string, status domain.CheckoutStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[purchaseID]; ok {
		p.status = status
	}
}

// Status reports the local status of a purchase started in this process.
func (s *CheckoutServiceImpl) Status(purchaseID string) (domain.CheckoutStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[purchaseID]
	if !ok {
		return "", false
	}
	return p.status, true
}
