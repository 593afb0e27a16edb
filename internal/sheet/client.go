// Package sheet is the client for the spreadsheet-tabs REST API that
// backs the bakery's data. Each tab is a named sheet acting as a
// table; rows are JSON objects keyed by column header. Reads are
// cached per tab for a short TTL; any successful write to a tab drops
// that tab's cache entry so the next read is fresh.
package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/toko-nastar/api/internal/model"
)

const (
	cacheTTL       = 5 * time.Minute
	requestTimeout = 15 * time.Second
)

// ErrNotConfigured is returned when a remote call is attempted before
// a base URL has been set.
var ErrNotConfigured = errors.New("sheet: remote base URL not configured")

// StatusError is a non-2xx response from the tab API, carrying the
// status code and response body so callers can tell a validation
// rejection from a server-side failure.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sheet: HTTP %d: %s", e.Status, e.Body)
}

// IsRetryable reports whether err looks like a connectivity-class
// failure worth queueing for replay: transport errors, timeouts, 5xx
// and 429 responses. 4xx responses are permanent — the row itself was
// rejected and retrying the identical payload can never succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= 500 || se.Status == http.StatusTooManyRequests
	}
	if errors.Is(err, ErrNotConfigured) {
		return false
	}
	return true
}

type cacheEntry struct {
	rows    []model.Row
	fetched time.Time
}

// Client talks to one spreadsheet's tab API.
type Client struct {
	mu      sync.Mutex
	baseURL string
	apiKey  string
	http    *http.Client
	cache   map[string]cacheEntry
	now     func() time.Time // stubbed in tests
}

// New creates a Client. baseURL may be empty; calls fail with
// ErrNotConfigured until Configure provides one.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
		cache:   make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Configure swaps the remote endpoint and credentials and drops the
// whole cache, since cached rows may belong to a different sheet.
func (c *Client) Configure(baseURL, apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.apiKey = apiKey
	c.cache = make(map[string]cacheEntry)
}

// Configured reports whether a base URL is set.
func (c *Client) Configured() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL != ""
}

// ClearCache drops every cached tab.
func (c *Client) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cacheEntry)
}

// Read returns all rows of a tab, served from cache when the entry is
// younger than the TTL.
func (c *Client) Read(ctx context.Context, tab string) ([]model.Row, error) {
	c.mu.Lock()
	if entry, ok := c.cache[tab]; ok && c.now().Sub(entry.fetched) < cacheTTL {
		rows := entry.rows
		c.mu.Unlock()
		return rows, nil
	}
	c.mu.Unlock()

	body, err := c.do(ctx, http.MethodGet, c.tabPath(tab), nil)
	if err != nil {
		return nil, err
	}

	var rows []model.Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("sheet: decode tab %s: %w", tab, err)
	}

	c.mu.Lock()
	c.cache[tab] = cacheEntry{rows: rows, fetched: c.now()}
	c.mu.Unlock()
	return rows, nil
}

// Create appends a row to a tab.
func (c *Client) Create(ctx context.Context, tab string, row model.Row) error {
	if _, err := c.do(ctx, http.MethodPost, c.tabPath(tab), row); err != nil {
		return err
	}
	c.invalidate(tab)
	return nil
}

// Update patches the rows whose keyField column equals keyValue.
func (c *Client) Update(ctx context.Context, tab, keyField, keyValue string, patch model.Row) error {
	if _, err := c.do(ctx, http.MethodPatch, c.rowPath(tab, keyField, keyValue), patch); err != nil {
		return err
	}
	c.invalidate(tab)
	return nil
}

// Delete removes the rows whose keyField column equals keyValue.
func (c *Client) Delete(ctx context.Context, tab, keyField, keyValue string) error {
	if _, err := c.do(ctx, http.MethodDelete, c.rowPath(tab, keyField, keyValue), nil); err != nil {
		return err
	}
	c.invalidate(tab)
	return nil
}

// Ping checks reachability of the remote endpoint. Any HTTP response,
// even an error status, proves the network path works; only transport
// failures count as unreachable.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.Lock()
	base := c.baseURL
	c.mu.Unlock()
	if base == "" {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return fmt.Errorf("sheet: build ping: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sheet: ping: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) invalidate(tab string) {
	c.mu.Lock()
	delete(c.cache, tab)
	c.mu.Unlock()
}

func (c *Client) tabPath(tab string) string {
	return "/tabs/" + url.PathEscape(tab)
}

func (c *Client) rowPath(tab, keyField, keyValue string) string {
	return fmt.Sprintf("/tabs/%s/%s/%s",
		url.PathEscape(tab), url.PathEscape(keyField), url.PathEscape(keyValue))
}

// do performs one request and returns the response body. Non-2xx
// responses come back as *StatusError.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	c.mu.Lock()
	base, key := c.baseURL, c.apiKey
	c.mu.Unlock()
	if base == "" {
		return nil, ErrNotConfigured
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("sheet: encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return nil, fmt.Errorf("sheet: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheet: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sheet: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}
