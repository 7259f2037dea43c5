package voucher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Source is the remote voucher resource.
type Source interface {
	List(ctx context.Context, voucherType string) ([]domain.Voucher, error)
	GetByCode(ctx context.Context, code string) (domain.Voucher, error)
	Deactivate(ctx context.Context, id string) error
}

type Engine struct {
	source Source
	now    func() time.Time
}

func NewEngine(source Source) *Engine {
	return &Engine{source: source, now: time.Now}
}

// Lookup finds the voucher whose code matches case-insensitively. The
// by-code endpoint is tried first; the full list is scanned when it misses.
func (e *Engine) Lookup(ctx context.Context, code string) (domain.Voucher, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Voucher{}, domain.Rejected(domain.ReasonNotFound, "empty voucher code")
	}

	v, err := e.source.GetByCode(ctx, code)
	if err == nil && v.MatchesCode(code) {
		return v, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.WarnContext(ctx, "voucher by-code lookup failed, scanning list", "code", code, "error", err)
	}

	all, listErr := e.source.List(ctx, "")
	if listErr != nil {
		return domain.Voucher{}, fmt.Errorf("lookup voucher %q: %w", code, listErr)
	}
	for _, candidate := range all {
		if candidate.MatchesCode(code) {
			return candidate, nil
		}
	}
	return domain.Voucher{}, domain.Rejected(domain.ReasonNotFound, "voucher %q not found", code)
}

// Apply looks code up and evaluates it against order.
func (e *Engine) Apply(ctx context.Context, code string, order Order) (domain.AppliedVoucher, error) {
	v, err := e.Lookup(ctx, code)
	if err != nil {
		return domain.AppliedVoucher{}, err
	}
	discount, err := Evaluate(v, order, e.now())
	if err != nil {
		return domain.AppliedVoucher{}, err
	}
	return domain.AppliedVoucher{
		ID:             v.ID,
		Code:           v.Code,
		Discount:       discount,
		OriginalAmount: order.Subtotal,
	}, nil
}

// List is a plain read; it never deactivates anything.
func (e *Engine) List(ctx context.Context, voucherType string) ([]domain.Voucher, error) {
	return e.source.List(ctx, voucherType)
}

// DeactivateExhausted flips active=false remotely for every active voucher
// whose usage ceiling is reached. The server stays the authority on
// redemption; this only keeps listings honest. Returns the number flipped.
func (e *Engine) DeactivateExhausted(ctx context.Context) (int, error) {
	all, err := e.source.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("deactivate exhausted: %w", err)
	}

	var errs []error
	flipped := 0
	for _, v := range all {
		if !v.Active || !v.Exhausted() {
			continue
		}
		if err := e.source.Deactivate(ctx, v.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		flipped++
		slog.InfoContext(ctx, "voucher deactivated", "voucher_id", v.ID, "code", v.Code, "used", v.UsedCount, "max", v.MaxUsage)
	}
	return flipped, errors.Join(errs...)
}
