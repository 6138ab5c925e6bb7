// Package client talks to the sqllab backend over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sql-lab/internal/catalog"
	"sql-lab/pkg/api"
)

type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

type Option func(*Client)

// WithTimeout bounds every request. Zero, the default, means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchCatalog downloads the raw multi-query script.
func (c *Client) FetchCatalog(ctx context.Context) (catalog.Text, error) {
	var out api.CatalogResponse
	if err := c.do(ctx, http.MethodGet, api.PathQueries, nil, &out); err != nil {
		return "", err
	}
	return catalog.Text(out.SQL), nil
}

// Entries downloads the catalog as an ordered list of queries.
func (c *Client) Entries(ctx context.Context) ([]api.CatalogEntry, error) {
	var out api.CatalogEntriesResponse
	if err := c.do(ctx, http.MethodGet, api.PathCatalog, nil, &out); err != nil {
		return nil, err
	}
	return out.Queries, nil
}

// RunQuery asks the backend to execute query qid. The reply is returned as
// decoded, without checking that rows match columns.
func (c *Client) RunQuery(ctx context.Context, qid catalog.QueryID) (*api.RunQueryResponse, error) {
	var out api.RunQueryResponse
	if err := c.do(ctx, http.MethodPost, api.PathRunQuery, api.RunQueryRequest{QID: string(qid)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Introspect returns the schema payload untouched.
func (c *Client) Introspect(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, api.PathIntrospect, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var out api.HealthResponse
	if err := c.do(ctx, http.MethodGet, api.PathHealth, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	c.log.Debug("backend call", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr api.ErrorResponse
		_ = json.Unmarshal(raw, &apiErr)
		return &APIError{StatusCode: resp.StatusCode, Detail: apiErr.Detail}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	return nil
}
