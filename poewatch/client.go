package poewatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://api.poe.watch"
	DefaultTimeout = 10 * time.Second

	// ItemPath is the per-item detail endpoint, queried with ?id=
	ItemPath = "/item"
)

// maxErrorBody caps how much of a failed response ends up in FetchError
const maxErrorBody = 512

// Client is a plain GET client for the poe.watch JSON API
type Client struct {
	http    *http.Client
	baseURL *url.URL
	logger  zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil {
			c.baseURL = u
		}
	}
}

// WithTimeout bounds every request. It replaces the timeout of the current
// HTTP client without mutating a client passed with WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		h := *c.http
		h.Timeout = d
		c.http = &h
	}
}
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(opts ...Option) *Client {
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		baseURL: u,
		logger:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) newReq(ctx context.Context, p string, q map[string]string) (*http.Request, string, error) {
	u := *c.baseURL
	u.Path = path.Join(u.Path, p)
	if len(q) > 0 {
		qq := u.Query()
		for k, v := range q {
			qq.Set(k, v)
		}
		u.RawQuery = qq.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, u.String(), nil
}

// Get fetches p with query parameters q and returns the raw body. Transport
// failures and non-2xx statuses are returned as *FetchError.
func (c *Client) Get(ctx context.Context, p string, q map[string]string) ([]byte, error) {
	req, target, err := c.newReq(ctx, p, q)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", target).Msg("poe.watch request failed")
		return nil, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn().Str("url", target).Int("status", resp.StatusCode).Msg("poe.watch returned an error status")
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug().
		Str("url", target).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("poe.watch request done")
	return body, nil
}
