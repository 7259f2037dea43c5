package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type cartItemDTO struct {
	ID            flexID     `json:"id"`
	ProductID     flexID     `json:"product_id"`
	EventID       flexID     `json:"event_id"`
	Quantity      int        `json:"quantity"`
	ProductName   string     `json:"product_name"`
	ProductPrice  flexAmount `json:"product_price"`
	ProductImages flexImages `json:"product_images"`
}

func (d cartItemDTO) toDomain() domain.CartLine {
	return domain.CartLine{
		ID:        string(d.ID),
		ProductID: string(d.ProductID),
		EventID:   string(d.EventID),
		Quantity:  d.Quantity,
		UnitPrice: int64(d.ProductPrice),
		Name:      d.ProductName,
		Images:    []string(d.ProductImages),
	}
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartAPI is the remote cart-items resource.
type CartAPI struct {
	client *Client
}

func NewCartAPI(client *Client) *CartAPI {
	return &CartAPI{client: client}
}

func (a *CartAPI) ListLines(ctx context.Context) ([]domain.CartLine, error) {
	var items []cartItemDTO
	if err := a.client.do(ctx, http.MethodGet, "/cart/items", nil, &items); err != nil {
		return nil, err
	}
	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, item.toDomain())
	}
	return lines, nil
}

func (a *CartAPI) AddLine(ctx context.Context, productID string, quantity int) error {
	return a.client.do(ctx, http.MethodPost, "/cart/items", addCartItemRequest{
		ProductID: productID,
		Quantity:  quantity,
	}, nil)
}

func (a *CartAPI) UpdateLine(ctx context.Context, lineID string, quantity int) error {
	return a.client.do(ctx, http.MethodPut, "/cart/items/"+url.PathEscape(lineID), updateQuantityRequest{
		Quantity: quantity,
	}, nil)
}

func (a *CartAPI) RemoveLine(ctx context.Context, lineID string) error {
	return a.client.do(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(lineID), nil, nil)
}

func (a *CartAPI) Clear(ctx context.Context) error {
	return a.client.do(ctx, http.MethodDelete, "/cart", nil, nil)
}
