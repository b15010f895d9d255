// Package planner implements the gateway port over the remote
// work-management REST API (groups, plans, buckets, tasks, channels).
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bridgelabs/planbridge/internal/domain"
	"github.com/bridgelabs/planbridge/internal/resilience"
)

// TokenFunc returns a bearer token for the current request. The token
// provider caches internally, so calling it per request is cheap; at
// most one upstream token fetch happens per expiry window.
type TokenFunc func(ctx context.Context) (string, error)

// Client is the low-level HTTP client for the remote resource API.
// Construct one per tenant through the client factory; the token
// callback binds it to that tenant's credentials.
type Client struct {
	baseURL    string
	token      TokenFunc
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a client rooted at baseURL. Every request carries a
// bearer token obtained from token and is bound to timeout.
func NewClient(baseURL string, token TokenFunc, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// do performs one request. etag, when non-empty, is forwarded as
// If-Match so the remote service rejects stale writes. Mutations ask for
// the updated representation back so callers always observe the fresh
// etag. Non-2xx responses come back as a classified *APIError.
func (c *Client) do(ctx context.Context, method, path, etag string, payload any) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if payload != nil {
			data, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("marshal request: %w", err)
			}
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		tok, err := c.token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if etag != "" {
			req.Header.Set("If-Match", etag)
		}
		if method == http.MethodPatch {
			req.Header.Set("Prefer", "return=representation")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrUnknownRemote, err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: read response: %v", domain.ErrUnknownRemote, err)
		}

		if resp.StatusCode >= 400 {
			return newAPIError(resp.StatusCode, data)
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, "", nil)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, "", payload)
}

func (c *Client) patch(ctx context.Context, path, etag string, payload any) ([]byte, error) {
	return c.do(ctx, http.MethodPatch, path, etag, payload)
}

func (c *Client) delete(ctx context.Context, path, etag string) error {
	_, err := c.do(ctx, http.MethodDelete, path, etag, nil)
	return err
}

// listEnvelope is the collection wrapper the remote API uses. A response
// without a value property decodes to an empty slice, never an error.
type listEnvelope[T any] struct {
	Value []T `json:"value"`
}

func decodeList[T any](data []byte) ([]T, error) {
	var env listEnvelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	if env.Value == nil {
		return []T{}, nil
	}
	return env.Value, nil
}

func decodeObject[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &v, nil
}
