package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Idem   string
	Body   string
}

type fakeRemote struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  http.HandlerFunc
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Idem:   r.Header.Get("Idempotency-Key"),
		Body:   string(body),
	})
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeRemote) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func setupRemote(t *testing.T, handler http.HandlerFunc) (*fakeRemote, *httptest.Server) {
	remote := &fakeRemote{handler: handler}
	srv := httptest.NewServer(remote)
	t.Cleanup(srv.Close)
	return remote, srv
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestUnwrap_OrderedFallback(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"bare array":     {`[1,2]`, `[1,2]`},
		"data":           {`{"data":[1]}`, `[1]`},
		"data.data":      {`{"data":{"data":[1]}}`, `[1]`},
		"results":        {`{"results":[1],"count":1}`, `[1]`},
		"data.items":     {`{"data":{"id":"c1","items":[1]}}`, `[1]`},
		"data wins":      {`{"results":[2],"data":[1]}`, `[1]`},
		"null data":      {`{"data":null,"results":[3]}`, `[3]`},
		"plain object":   {`{"id":"p1","quantity":2}`, `{"id":"p1","quantity":2}`},
		"data is object": {`{"data":{"id":"p1"}}`, `{"id":"p1"}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.JSONEq(t, tc.want, string(Unwrap([]byte(tc.body))))
		})
	}
}

func TestUnwrapObject_StopsAtResource(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"data":           {`{"data":{"id":"p1"}}`, `{"id":"p1"}`},
		"data.data":      {`{"data":{"data":{"id":"p1"}}}`, `{"id":"p1"}`},
		"resource items": {`{"data":{"id":"c1","items":[1]}}`, `{"id":"c1","items":[1]}`},
		"top resource":   {`{"id":"c1","results":[1]}`, `{"id":"c1","results":[1]}`},
		"no id":          {`{"data":{"invoice_url":"u"}}`, `{"invoice_url":"u"}`},
		"bare array":     {`[1]`, `[1]`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.JSONEq(t, tc.want, string(UnwrapObject([]byte(tc.body))))
		})
	}
}

func TestCartAPI_ListLines_FlexibleShapes(t *testing.T) {
	_, srv := setupRemote(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, `{"data":{"data":[
			{"id":7,"product_id":"p1","quantity":3,"product_name":"Ticket A","product_price":"50000.00","product_images":[{"url":"a.png"}]},
			{"id":"8","product_id":2,"quantity":1,"product_name":"Ticket B","product_price":1000,"product_images":["b.png"]}
		]}}`)
	})
	s := session.New()
	s.Set(session.Credentials{AccessToken: "tok"})
	api := NewCartAPI(NewClient("cart", srv.URL, s, time.Second))

	lines, err := api.ListLines(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, domain.CartLine{ID: "7", ProductID: "p1", Quantity: 3, UnitPrice: 50000, Name: "Ticket A", Images: []string{"a.png"}}, lines[0])
	assert.Equal(t, "2", lines[1].ProductID)
	assert.Equal(t, []string{"b.png"}, lines[1].Images)
}

func TestCartAPI_Mutations(t *testing.T) {
	remote, srv := setupRemote(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, `{"message":"ok"}`)
	})
	s := session.New()
	s.Set(session.Credentials{AccessToken: "tok"})
	api := NewCartAPI(NewClient("cart", srv.URL, s, time.Second))
	ctx := context.Background()

	require.NoError(t, api.AddLine(ctx, "p1", 2))
	require.NoError(t, api.UpdateLine(ctx, "l1", 5))
	require.NoError(t, api.RemoveLine(ctx, "l1"))
	require.NoError(t, api.Clear(ctx))

	reqs := remote.recorded()
	require.Len(t, reqs, 4)
	assert.Equal(t, "POST /cart/items", reqs[0].Method+" "+reqs[0].Path)
	assert.JSONEq(t, `{"product_id":"p1","quantity":2}`, reqs[0].Body)
	assert.Equal(t, "PUT /cart/items/l1", reqs[1].Method+" "+reqs[1].Path)
	assert.JSONEq(t, `{"quantity":5}`, reqs[1].Body)
	assert.Equal(t, "DELETE /cart/items/l1", reqs[2].Method+" "+reqs[2].Path)
	assert.Equal(t, "DELETE /cart", reqs[3].Method+" "+reqs[3].Path)
	for _, r := range reqs {
		assert.Equal(t, "Bearer tok", r.Auth)
	}
}

func TestClient_RefreshOnceThenRetry(t *testing.T) {
	remote, srv := setupRemote(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/refresh":
			writeBody(w, http.StatusOK, `{"data":{"access_token":"fresh","refresh_token":"rt2"}}`)
		case r.Header.Get("Authorization") == "Bearer fresh":
			writeBody(w, http.StatusOK, `{"data":[]}`)
		default:
			writeBody(w, http.StatusUnauthorized, `{"error":"expired"}`)
		}
	})
	s := session.New()
	s.SetRefresher(NewAuthAPI(NewClient("auth", srv.URL, nil, time.Second)))
	s.Set(session.Credentials{AccessToken: "stale", RefreshToken: "rt", Subject: "u1"})
	api := NewCartAPI(NewClient("cart", srv.URL, s, time.Second))

	lines, err := api.ListLines(context.Background())
	require.NoError(t, err)
	assert.Empty(t, lines)

	reqs := remote.recorded()
	require.Len(t, reqs, 3)
	assert.Equal(t, "Bearer stale", reqs[0].Auth)
	assert.Equal(t, "/auth/refresh", reqs[1].Path)
	assert.Equal(t, "Bearer fresh", reqs[2].Auth)
	assert.Equal(t, "u1", s.Subject())
}

func TestClient_SecondUnauthorizedClearsCredentials(t *testing.T) {
	remote, srv := setupRemote(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			writeBody(w, http.StatusOK, `{"access_token":"fresh"}`)
			return
		}
		writeBody(w, http.StatusUnauthorized, `{}`)
	})
	s := session.New()
	s.SetRefresher(NewAuthAPI(NewClient("auth", srv.URL, nil, time.Second)))
	s.Set(session.Credentials{AccessToken: "stale", RefreshToken: "rt"})
	api := NewCartAPI(NewClient("cart", srv.URL, s, time.Second))

	_, err := api.ListLines(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	_, ok := s.Token()
	assert.False(t, ok, "credentials must be cleared after the retry is rejected")
	assert.Len(t, remote.recorded(), 3, "exactly one refresh and one retry")
}

func TestClient_StatusMapping(t *testing.T) {
	_, srv := setupRemote(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/missing":
			writeBody(w, http.StatusNotFound, `{"error":"not found"}`)
		default:
			writeBody(w, http.StatusBadGateway, `upstream down`)
		}
	})
	api := NewProductAPI(NewClient("product", srv.URL, nil, time.Second))

	_, err := api.GetProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = api.GetProduct(context.Background(), "p1")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
}

func TestProductAPI_GetProduct(t *testing.T) {
	_, srv := setupRemote(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, `{"data":{"id":12,"name":"Ticket","price":50000,"quantity":2,"event_id":"e1"}}`)
	})
	api := NewProductAPI(NewClient("product", srv.URL, nil, time.Second))

	p, err := api.GetProduct(context.Background(), "12")
	require.NoError(t, err)
	assert.Equal(t, domain.Product{ID: "12", Name: "Ticket", Price: 50000, Quantity: 2, EventID: "e1"}, p)
}

func TestVoucherAPI(t *testing.T) {
	remote, srv := setupRemote(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/vouchers":
			writeBody(w, http.StatusOK, `{"results":[{"id":1,"code":"SAVE10","discount_type":"percentage","discount_value":"10","min_order_value":0,"max_usage":5,"used_count":5,"is_active":true,"apply_to_all":true,"voucher_type":"ticket"}]}`)
		case r.Method == http.MethodGet:
			writeBody(w, http.StatusOK, `{"data":{"id":2,"code":"FLAT","discount_type":"fixed_amount","discount_value":10000,"product_ids":[5,"6"],"is_active":true}}`)
		default:
			writeBody(w, http.StatusOK, `{}`)
		}
	})
	api := NewVoucherAPI(NewClient("voucher", srv.URL, nil, time.Second))
	ctx := context.Background()

	list, err := api.List(ctx, "ticket")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Exhausted())
	assert.Equal(t, "10", list[0].DiscountValue.String())
	assert.True(t, list[0].Scope.ApplyToAll)

	v, err := api.GetByCode(ctx, "flat")
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "6"}, v.Scope.ProductIDs)
	assert.Equal(t, domain.DiscountFixedAmount, v.DiscountType)

	require.NoError(t, api.Deactivate(ctx, "1"))

	reqs := remote.recorded()
	assert.Equal(t, "type=ticket", reqs[0].Query)
	assert.Equal(t, "/vouchers/code/flat", reqs[1].Path)
	assert.Equal(t, http.MethodPatch, reqs[2].Method)
	assert.JSONEq(t, `{"is_active":false}`, reqs[2].Body)
}

func TestPurchaseAPI(t *testing.T) {
	remote, srv := setupRemote(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/purchases", "/purchases/direct":
			writeBody(w, http.StatusCreated, `{"data":{"id":"pur-1","status":"pending","total_amount":140000,
				"items":[{"product_id":"p1","quantity":3,"price":50000}]}}`)
		case "/purchases/pur-1/payment":
			writeBody(w, http.StatusOK, `{"data":{"invoice_url":"https://pay.example/inv/1","external_id":"x1"}}`)
		}
	})
	s := session.New()
	s.Set(session.Credentials{AccessToken: "tok"})
	api := NewPurchaseAPI(NewClient("purchase", srv.URL, s, time.Second))
	ctx := context.Background()

	purchase, err := api.CreateFromCart(ctx, domain.PurchaseRequest{
		Mode:           domain.ModeCart,
		Items:          []domain.PurchaseItem{{LineID: "l1", ProductID: "p1", Quantity: 3, UnitPrice: 50000}},
		Voucher:        &domain.AppliedVoucher{ID: "v1", Code: "FLAT", Discount: 10000, OriginalAmount: 150000},
		IdempotencyKey: "idem-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pur-1", purchase.ID)
	assert.Equal(t, int64(140000), purchase.Total)

	direct, err := api.CreateDirect(ctx, domain.PurchaseRequest{Mode: domain.ModeDirect, ProductID: "p9", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "pur-1", direct.ID)

	payment, err := api.InitiatePayment(ctx, "pur-1")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/inv/1", payment.InvoiceURL)

	reqs := remote.recorded()
	require.Len(t, reqs, 3)
	assert.Equal(t, "idem-1", reqs[0].Idem)
	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &sent))
	assert.Equal(t, "FLAT", sent["voucher"].(map[string]any)["code"])
	assert.Equal(t, "/purchases/direct", reqs[1].Path)
	assert.Empty(t, reqs[1].Idem)
}
