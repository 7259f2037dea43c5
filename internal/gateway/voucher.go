package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type voucherDTO struct {
	ID            flexID          `json:"id"`
	Code          string          `json:"code"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	MinOrderValue flexAmount      `json:"min_order_value"`
	ValidFrom     *time.Time      `json:"valid_from"`
	ValidUntil    *time.Time      `json:"valid_until"`
	MaxUsage      int             `json:"max_usage"`
	UsedCount     int             `json:"used_count"`
	IsActive      bool            `json:"is_active"`
	ApplyToAll    bool            `json:"apply_to_all"`
	ProductIDs    []flexID        `json:"product_ids"`
	EventIDs      []flexID        `json:"event_ids"`
	VoucherType   string          `json:"voucher_type"`
}

func (d voucherDTO) toDomain() domain.Voucher {
	return domain.Voucher{
		ID:            string(d.ID),
		Code:          d.Code,
		DiscountType:  domain.DiscountType(d.DiscountType),
		DiscountValue: d.DiscountValue,
		MinOrderValue: int64(d.MinOrderValue),
		ValidFrom:     d.ValidFrom,
		ValidUntil:    d.ValidUntil,
		MaxUsage:      d.MaxUsage,
		UsedCount:     d.UsedCount,
		Active:        d.IsActive,
		Scope: domain.VoucherScope{
			ApplyToAll: d.ApplyToAll,
			ProductIDs: ids(d.ProductIDs),
			EventIDs:   ids(d.EventIDs),
		},
		VoucherType: d.VoucherType,
	}
}

func ids(in []flexID) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, id := range in {
		out[i] = string(id)
	}
	return out
}

type VoucherAPI struct {
	client *Client
}

func NewVoucherAPI(client *Client) *VoucherAPI {
	return &VoucherAPI{client: client}
}

// List returns the fetchable voucher set. An empty voucherType lists all.
func (a *VoucherAPI) List(ctx context.Context, voucherType string) ([]domain.Voucher, error) {
	path := "/vouchers"
	if voucherType != "" {
		path += "?type=" + url.QueryEscape(voucherType)
	}
	var dtos []voucherDTO
	if err := a.client.do(ctx, http.MethodGet, path, nil, &dtos); err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	out := make([]domain.Voucher, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (a *VoucherAPI) GetByCode(ctx context.Context, code string) (domain.Voucher, error) {
	var dto voucherDTO
	if err := a.client.do(ctx, http.MethodGet, "/vouchers/code/"+url.PathEscape(code), nil, &dto); err != nil {
		return domain.Voucher{}, fmt.Errorf("get voucher %q: %w", code, err)
	}
	return dto.toDomain(), nil
}

type deactivateRequest struct {
	IsActive bool `json:"is_active"`
}

func (a *VoucherAPI) Deactivate(ctx context.Context, id string) error {
	if err := a.client.do(ctx, http.MethodPatch, "/vouchers/"+url.PathEscape(id), deactivateRequest{IsActive: false}, nil); err != nil {
		return fmt.Errorf("deactivate voucher %s: %w", id, err)
	}
	return nil
}
