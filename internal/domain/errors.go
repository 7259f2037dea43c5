package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuthRequired         = errors.New("authentication required")
	ErrNotFound             = errors.New("not found")
	ErrValidationFailed     = errors.New("validation failed")
	ErrStockInsufficient    = errors.New("insufficient stock")
	ErrStockUnavailable     = errors.New("stock unavailable")
	ErrNetworkUnverifiable  = errors.New("stock could not be verified")
	ErrRemoteMutationFailed = errors.New("remote cart mutation failed")

	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrEmptySelection    = errors.New("no cart lines selected for checkout")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInvalidCheckout   = errors.New("invalid checkout request")
	ErrIllegalTransition = errors.New("illegal transition of checkout status")
)

type RejectionReason string

const (
	ReasonNotFound     RejectionReason = "not_found"
	ReasonInactive     RejectionReason = "inactive"
	ReasonNotYetValid  RejectionReason = "not_yet_valid"
	ReasonExpired      RejectionReason = "expired"
	ReasonBelowMinimum RejectionReason = "below_minimum"
	ReasonOutOfScope   RejectionReason = "out_of_scope"
)

// ValidationError is a voucher rejection. NotFound unwraps to ErrNotFound,
// every other reason to ErrValidationFailed.
type ValidationError struct {
	Reason  RejectionReason
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("voucher rejected: %s", e.Reason)
	}
	return fmt.Sprintf("voucher rejected: %s: %s", e.Reason, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Reason == ReasonNotFound {
		return ErrNotFound
	}
	return ErrValidationFailed
}

func Rejected(reason RejectionReason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// StockError carries the lines that block checkout.
type StockError struct {
	Checks []StockCheck
}

func (e *StockError) Error() string {
	msgs := e.Messages()
	return "checkout blocked by stock: " + strings.Join(msgs, "; ")
}

func (e *StockError) Messages() []string {
	out := make([]string, 0, len(e.Checks))
	for _, c := range e.Checks {
		out = append(out, c.Message())
	}
	return out
}

func (e *StockError) Unwrap() []error {
	var errs []error
	var insufficient, unavailable bool
	for _, c := range e.Checks {
		switch c.Status {
		case StockInsufficient:
			insufficient = true
		case StockUnavailable:
			unavailable = true
		}
	}
	if insufficient {
		errs = append(errs, ErrStockInsufficient)
	}
	if unavailable {
		errs = append(errs, ErrStockUnavailable)
	}
	return errs
}
