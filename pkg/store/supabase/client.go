// Package supabase implements store.Store against a Supabase project through
// its PostgREST endpoint (/rest/v1/<table>) authenticated with a service key.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
)

type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

// Client is a minimal PostgREST client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// query collects PostgREST filters, ordering and limits.
type query struct {
	url.Values
}

func newQuery() query { return query{Values: url.Values{}} }

func (q query) eq(column string, v any) query {
	q.Add(column, fmt.Sprintf("eq.%v", v))
	return q
}

func (q query) lt(column string, t time.Time) query {
	q.Add(column, "lt."+t.UTC().Format(time.RFC3339Nano))
	return q
}

func (q query) contains(column, value string) query {
	q.Add(column, "cs.{"+value+"}")
	return q
}

func (q query) order(spec string) query {
	q.Set("order", spec)
	return q
}

func (q query) limit(n int) query {
	q.Set("limit", fmt.Sprint(n))
	return q
}

func (q query) offset(n int) query {
	q.Set("offset", fmt.Sprint(n))
	return q
}

func (q query) sel(columns string) query {
	q.Set("select", columns)
	return q
}

// do sends one request and returns the response body. Transport failures and
// 5xx responses are reported as apperr unavailable so callers can fall back.
func (c *Client) do(ctx context.Context, method, table string, q query, body any, prefer string) ([]byte, error) {
	u := c.baseURL + "/rest/v1/" + url.PathEscape(table)
	if len(q.Values) > 0 {
		u += "?" + q.Encode()
	}

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", table, err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", table, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperr.Unavailable("supabase unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Unavailable("supabase response truncated", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, responseError(table, resp.StatusCode, data)
}

// responseError maps a PostgREST error body ({"code","message","details","hint"}).
func responseError(table string, status int, body []byte) error {
	code := gjson.GetBytes(body, "code").String()
	msg := gjson.GetBytes(body, "message").String()
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	err := fmt.Errorf("supabase %s: status %d: %s", table, status, msg)

	switch {
	case status >= 500:
		return apperr.Unavailable("supabase unavailable", err)
	case status == http.StatusConflict || code == "23505":
		return apperr.Wrap(apperr.KindConflict, "record already exists", err)
	case code == "PGRST116":
		return apperr.Wrap(apperr.KindNotFound, "record not found", err)
	case status == http.StatusTooManyRequests:
		return apperr.Unavailable("supabase rate limited", err)
	}
	return err
}

func decode[T any](data []byte) ([]T, error) {
	out := []T{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode supabase response: %w", err)
	}
	return out, nil
}

// one returns the single row of data or a not found error for what.
func one[T any](data []byte, what string) (*T, error) {
	rows, err := decode[T](data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound(what)
	}
	return &rows[0], nil
}

// affected reports a not found error when a return=representation write
// matched nothing.
func affected(data []byte, what string) error {
	if gjson.GetBytes(data, "#").Int() == 0 {
		return apperr.NotFound(what)
	}
	return nil
}
