package switchapi

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
)

const defaultTimeout = 30 * time.Second

// Client talks to the switch with references relative to its service base.
type Client struct {
	base       *url.URL
	http       *http.Client
	authorized bool
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its transport is kept and
// wrapped when a token source is also configured.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.http = &cp
		}
	}
}

// WithTokenSource authorizes every request with a bearer token from ts.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		if ts == nil {
			return
		}
		c.http.Transport = &bearerTransport{base: c.http.Transport, tokens: ts}
		c.authorized = true
	}
}

// NewClient builds a client for baseURL, which must be absolute. A missing
// trailing slash is added so that relative references resolve beneath it.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, &URIError{Ref: baseURL, Reason: "service url is required"}
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &URIError{Ref: baseURL, Err: err}
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, &URIError{Ref: baseURL, Reason: "service url must be absolute"}
	}

	c := &Client{base: base, http: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MakeRelative converts an absolute href returned by the switch into the
// base-relative form handed back to the contact flow.
func (c *Client) MakeRelative(href string) (string, error) {
	return makeRelative(c.base, href)
}

func (c *Client) Get(ctx context.Context, ref string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, ref, nil)
}

func (c *Client) Delete(ctx context.Context, ref string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, ref, nil)
}

// Post sends body as JSON. A nil body sends an empty request.
func (c *Client) Post(ctx context.Context, ref string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, ref, body)
}

func (c *Client) Do(ctx context.Context, method, ref string, body any) (*Response, error) {
	target, err := resolve(c.base, ref)
	if err != nil {
		return nil, err
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", method, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	if c.authorized {
		req.Header.Set("Authorization", bearerScheme)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, target.Path, err)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
