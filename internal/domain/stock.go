package domain

import "fmt"

// Product is the live product record read right before purchase.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	EventID  string `json:"event_id,omitempty"`
}

type StockStatus string

const (
	StockSufficient   StockStatus = "sufficient"
	StockInsufficient StockStatus = "insufficient"
	StockUnavailable  StockStatus = "unavailable"
	StockUnverifiable StockStatus = "unverifiable"
)

// Blocks reports whether this status must stop a checkout.
func (s StockStatus) Blocks() bool {
	return s == StockInsufficient || s == StockUnavailable
}

// StockCheck is the classification of one line.
type StockCheck struct {
	LineID    string      `json:"line_id"`
	ProductID string      `json:"product_id"`
	Name      string      `json:"name"`
	Requested int         `json:"requested"`
	Available int         `json:"available"`
	Status    StockStatus `json:"status"`
	Err       error       `json:"-"`
}

// Message is the user-facing text for a blocking or soft-failed line.
func (c StockCheck) Message() string {
	switch c.Status {
	case StockInsufficient:
		return fmt.Sprintf("Only %d items available", c.Available)
	case StockUnavailable:
		name := c.Name
		if name == "" {
			name = c.ProductID
		}
		return fmt.Sprintf("%s is out of stock", name)
	case StockUnverifiable:
		return fmt.Sprintf("stock for %s could not be verified", c.ProductID)
	default:
		return ""
	}
}

// StockReport aggregates the checks of one validation run.
type StockReport struct {
	Checks []StockCheck `json:"checks"`
}

func (r StockReport) Blocked() bool {
	for _, c := range r.Checks {
		if c.Status.Blocks() {
			return true
		}
	}
	return false
}

func (r StockReport) Blocking() []StockCheck {
	var out []StockCheck
	for _, c := range r.Checks {
		if c.Status.Blocks() {
			out = append(out, c)
		}
	}
	return out
}

func (r StockReport) Unverifiable() []StockCheck {
	var out []StockCheck
	for _, c := range r.Checks {
		if c.Status == StockUnverifiable {
			out = append(out, c)
		}
	}
	return out
}

// Err returns a *StockError when the report blocks checkout, nil otherwise.
func (r StockReport) Err() error {
	blocking := r.Blocking()
	if len(blocking) == 0 {
		return nil
	}
	return &StockError{Checks: blocking}
}
