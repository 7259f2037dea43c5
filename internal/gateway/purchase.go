package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type purchaseDTO struct {
	ID     flexID     `json:"id"`
	Status string     `json:"status"`
	Total  flexAmount `json:"total_amount"`
}

type paymentDTO struct {
	InvoiceURL  string `json:"invoice_url"`
	RedirectURL string `json:"redirect_url"`
	ExternalID  string `json:"external_id"`
}

type PurchaseAPI struct {
	client *Client
}

func NewPurchaseAPI(client *Client) *PurchaseAPI {
	return &PurchaseAPI{client: client}
}

// CreateFromCart submits cart or selected-subset lines.
func (a *PurchaseAPI) CreateFromCart(ctx context.Context, req domain.PurchaseRequest) (domain.Purchase, error) {
	return a.create(ctx, "/purchases", req)
}

// CreateDirect submits a single product without touching the cart.
func (a *PurchaseAPI) CreateDirect(ctx context.Context, req domain.PurchaseRequest) (domain.Purchase, error) {
	return a.create(ctx, "/purchases/direct", req)
}

func (a *PurchaseAPI) create(ctx context.Context, path string, req domain.PurchaseRequest) (domain.Purchase, error) {
	var headers []header
	if req.IdempotencyKey != "" {
		headers = append(headers, header{key: "Idempotency-Key", value: req.IdempotencyKey})
	}
	var dto purchaseDTO
	if err := a.client.do(ctx, http.MethodPost, path, req, &dto, headers...); err != nil {
		return domain.Purchase{}, fmt.Errorf("create purchase: %w", err)
	}
	if dto.ID == "" {
		return domain.Purchase{}, fmt.Errorf("create purchase: response carries no purchase id")
	}
	return domain.Purchase{ID: string(dto.ID), Status: dto.Status, Total: int64(dto.Total)}, nil
}

func (a *PurchaseAPI) InitiatePayment(ctx context.Context, purchaseID string) (domain.Payment, error) {
	var dto paymentDTO
	path := "/purchases/" + url.PathEscape(purchaseID) + "/payment"
	if err := a.client.do(ctx, http.MethodPost, path, struct{}{}, &dto); err != nil {
		return domain.Payment{}, fmt.Errorf("initiate payment for %s: %w", purchaseID, err)
	}
	target := dto.InvoiceURL
	if target == "" {
		target = dto.RedirectURL
	}
	if target == "" {
		return domain.Payment{}, fmt.Errorf("initiate payment for %s: response carries no redirect url", purchaseID)
	}
	return domain.Payment{PurchaseID: purchaseID, InvoiceURL: target, ExternalRef: dto.ExternalID}, nil
}
