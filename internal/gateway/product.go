package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type productDTO struct {
	ID       flexID     `json:"id"`
	Name     string     `json:"name"`
	Price    flexAmount `json:"price"`
	Quantity int        `json:"quantity"`
	EventID  flexID     `json:"event_id"`
}

type ProductAPI struct {
	client *Client
}

func NewProductAPI(client *Client) *ProductAPI {
	return &ProductAPI{client: client}
}

// GetProduct reads the live product record, including current quantity.
func (a *ProductAPI) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var dto productDTO
	if err := a.client.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &dto); err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return domain.Product{
		ID:       string(dto.ID),
		Name:     dto.Name,
		Price:    int64(dto.Price),
		Quantity: dto.Quantity,
		EventID:  string(dto.EventID),
	}, nil
}
