// Package apiclient calls the academy REST backend on behalf of a signed-in role. Every
// request carries the role's bearer token; requests without a valid session never leave the
// process.
package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/academy-portal/internal/errors"
	"golang.org/x/oauth2"
)

const defaultTimeout = 15 * time.Second

// Client builds authenticated requests against a fixed base URL.
type Client struct {
	baseURL *url.URL
	base    http.RoundTripper
	timeout time.Duration
}

type Option func(*Client)

// WithTransport sets the transport underneath the bearer token transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.base = rt
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("[apiclient New] parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[apiclient New] base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		base:    http.DefaultTransport,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// HTTPClient returns a client whose requests are authorised from tokens.
func (c *Client) HTTPClient(tokens oauth2.TokenSource) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{Source: tokens, Base: c.base},
		Timeout:   c.timeout,
	}
}

// URL resolves a backend path and query against the base URL.
func (c *Client) URL(path, rawQuery string) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	u.RawQuery = rawQuery
	return u.String()
}

// Do sends method to path with the session's bearer token. A missing or invalid session
// fails with ErrNotAuthenticated before any network traffic.
func (c *Client) Do(ctx context.Context, tokens oauth2.TokenSource, method, path, rawQuery string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, rawQuery), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	// The transport sets its own
	req.Header.Del("Authorization")

	resp, err := c.HTTPClient(tokens).Do(req)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotAuthenticated) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUpstream, err)
	}
	return resp, nil
}
