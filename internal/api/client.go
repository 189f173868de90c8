package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout = 2 * time.Minute
	queryPath      = "/query"
	maxBodyBytes   = 8 << 20
)

// Client is a thin HTTP client for the answer service.
type Client struct {
	baseURL string
	token   string
	shape   Shape
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithShape(shape Shape) Option {
	return func(c *Client) { c.shape = shape }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request. Zero means no client-side timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: max(d, 0)}
	}
}

// NewClient validates baseURL and returns a client for it.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api url required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url must be http or https: %s", baseURL)
	}

	c := &Client{
		baseURL: baseURL,
		shape:   ShapeAuto,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized service URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Endpoint returns the full query URL.
func (c *Client) Endpoint() string { return c.baseURL + queryPath }

// Query sends one prompt and decodes the answer. The call aborts when ctx is
// cancelled; the returned error then wraps ctx.Err().
func (c *Client) Query(ctx context.Context, prompt, requestID string) (Result, error) {
	data, status, err := c.do(ctx, http.MethodPost, queryPath, QueryRequest{Prompt: prompt}, requestID)
	if err != nil {
		return Result{}, err
	}
	if status < 200 || status > 299 {
		return Result{}, &StatusError{Status: status, Detail: parseDetail(data)}
	}
	res, err := DecodeResult(data, c.shape)
	if err != nil {
		return Result{}, &ResponseError{Status: status, Err: err}
	}
	res.Status = status
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, requestID string) ([]byte, int, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, 0, fmt.Errorf("request failed: %w: %w", ErrTimeout, err)
		}
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, resp.StatusCode, ctxErr
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, resp.StatusCode, fmt.Errorf("request failed: %w: %w", ErrTimeout, err)
		}
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return data, resp.StatusCode, nil
}
