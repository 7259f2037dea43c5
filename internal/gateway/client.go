// Package gateway holds the HTTP clients of the remote collaborators
// (cart, product, voucher, purchase/payment, auth).
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TokenSource supplies the bearer credential. Refresh is attempted once per
// request on a 401; Clear is called when the retry is rejected too.
type TokenSource interface {
	Token() (string, bool)
	Refresh(ctx context.Context) error
	Clear()
}

// StatusError is a non-2xx answer that has no taxonomy mapping.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

type response struct {
	status int
	body   []byte
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	breaker    *gobreaker.CircuitBreaker[*response]
}

// NewClient builds a client for one collaborator base URL. tokens may be nil
// for endpoints that never carry a credential.
func NewClient(name, baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tokens:  tokens,
		breaker: newBreaker(name),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker[*response] {
	return gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("gateway breaker state changed", "gateway", name, "from", from.String(), "to", to.String())
		},
	})
}

type header struct {
	key, value string
}

// do sends one request, retrying once after a credential refresh on 401,
// and decodes the unwrapped payload into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any, headers ...header) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s request: %w", method, path, err)
		}
	}

	resp, err := c.send(ctx, method, path, payload, headers)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized {
		resp, err = c.retryAuthorized(ctx, method, path, payload, headers)
		if err != nil {
			return err
		}
	}

	if err := statusError(method, path, resp); err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payloadFor(resp.body, out), out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// payloadFor unwraps lists for slice targets and single resources otherwise.
func payloadFor(body []byte, out any) json.RawMessage {
	if t := reflect.TypeOf(out); t != nil && t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Slice {
		return Unwrap(body)
	}
	return UnwrapObject(body)
}

func (c *Client) retryAuthorized(ctx context.Context, method, path string, payload []byte, headers []header) (*response, error) {
	if c.tokens == nil {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrAuthRequired, method, path)
	}
	if _, had := c.tokens.Token(); had {
		if err := c.tokens.Refresh(ctx); err != nil {
			slog.WarnContext(ctx, "credential refresh failed", "path", path, "error", err)
		} else {
			resp, err := c.send(ctx, method, path, payload, headers)
			if err != nil {
				return nil, err
			}
			if resp.status != http.StatusUnauthorized {
				return resp, nil
			}
		}
	}
	c.tokens.Clear()
	return nil, fmt.Errorf("%w: %s %s", domain.ErrAuthRequired, method, path)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, headers []header) (*response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token, ok := c.tokens.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for _, h := range headers {
		req.Header.Set(h.key, h.value)
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer httpResp.Body.Close()
		body, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		r := &response{status: httpResp.StatusCode, body: body}
		if r.status >= http.StatusInternalServerError {
			return r, errServerStatus
		}
		return r, nil
	})
	if errors.Is(err, errServerStatus) {
		return resp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// errServerStatus marks 5xx answers as breaker failures; callers still get
// the response and map it through statusError.
var errServerStatus = errors.New("server error status")

func statusError(method, path string, resp *response) error {
	switch {
	case resp.status >= 200 && resp.status < 300:
		return nil
	case resp.status == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, method, path)
	case resp.status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s %s", domain.ErrAuthRequired, method, path)
	default:
		return &StatusError{Method: method, Path: path, Code: resp.status, Body: strings.TrimSpace(string(resp.body))}
	}
}
