// Package stock re-checks live inventory right before a purchase.
package stock

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"golang.org/x/sync/errgroup"
)

type Catalog interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

type Pipeline struct {
	catalog       Catalog
	maxConcurrent int
}

func NewPipeline(catalog Catalog, maxConcurrent int) *Pipeline {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Pipeline{catalog: catalog, maxConcurrent: maxConcurrent}
}

// ValidateAll classifies every line against the live product record. Each
// distinct product is fetched once, and lines of the same product share its
// stock: each is judged against the quantity all of them request. A failed lookup marks the line
// unverifiable and never aborts the others; a product the catalog no longer
// has counts as unavailable.
func (p *Pipeline) ValidateAll(ctx context.Context, lines []domain.CartLine) domain.StockReport {
	type result struct {
		product domain.Product
		err     error
	}

	var mu sync.Mutex
	fetched := make(map[string]result, len(lines))
	requested := make(map[string]int, len(lines))
	for _, line := range lines {
		requested[line.ProductID] += line.Quantity
	}

	var g errgroup.Group
	g.SetLimit(p.maxConcurrent)
	for _, line := range lines {
		id := line.ProductID
		mu.Lock()
		_, dup := fetched[id]
		if !dup {
			fetched[id] = result{}
		}
		mu.Unlock()
		if dup {
			continue
		}

		g.Go(func() error {
			product, err := p.catalog.GetProduct(ctx, id)
			mu.Lock()
			fetched[id] = result{product: product, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report := domain.StockReport{Checks: make([]domain.StockCheck, 0, len(lines))}
	for _, line := range lines {
		r := fetched[line.ProductID]
		check := classify(line, requested[line.ProductID], r.product, r.err)
		if check.Status == domain.StockUnverifiable {
			slog.WarnContext(ctx, "stock unverifiable, not blocking checkout",
				"line_id", line.ID, "product_id", line.ProductID, "error", r.err)
		}
		report.Checks = append(report.Checks, check)
	}
	return report
}

// classify judges line against product. total is what every line of the
// product asks for together; Requested stays the line's own quantity.
func classify(line domain.CartLine, total int, product domain.Product, err error) domain.StockCheck {
	check := domain.StockCheck{
		LineID:    line.ID,
		ProductID: line.ProductID,
		Name:      line.Name,
		Requested: line.Quantity,
	}
	if product.Name != "" {
		check.Name = product.Name
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		check.Status = domain.StockUnavailable
	case err != nil:
		check.Status = domain.StockUnverifiable
		check.Err = errors.Join(domain.ErrNetworkUnverifiable, err)
	case product.Quantity <= 0:
		check.Status = domain.StockUnavailable
	case product.Quantity < total:
		check.Status = domain.StockInsufficient
		check.Available = product.Quantity
	default:
		check.Status = domain.StockSufficient
		check.Available = product.Quantity
	}
	return check
}
