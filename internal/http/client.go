// Package http implements the HTTP transport for the Content Services API:
// bearer auth, JSON codec, retry with exponential backoff, and response
// error classification.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/tribpub/p2p-go/internal/constants"
	"github.com/tribpub/p2p-go/pkg/p2p"
)

// Logger interface for HTTP client logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Request represents an API request.
type Request struct {
	Method string
	Path   string

	// Query is the already-encoded query string, without the leading "?".
	Query string

	// Body is JSON-encoded after request normalization.
	Body interface{}

	Headers map[string]string
}

// Response represents an API response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client is the HTTP client for the Content Services API.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	debug      bool
	logger     Logger
	httpClient *retryablehttp.Client
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithRetryConfig sets the retry bounds.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// NewClient creates a new HTTP client for the given API endpoint.
func NewClient(baseURL, token string, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.Logger = nil
	retryClient.CheckRetry = checkRetry
	// Hand the exhausted response back instead of an opaque "giving up"
	// error, so it still gets classified.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		userAgent:  "p2p-go/1.0",
		httpClient: retryClient,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// checkRetry retries connection errors, throttled 403s, 429s, and server
// errors whose body carries a timeout signature. Other client errors are
// never retried.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return true, nil
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return true, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return true, nil
	case resp.StatusCode >= 500:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return false, nil
		}

		resp.Body = io.NopCloser(bytes.NewReader(body))

		return p2p.HasTimeoutSignature(resp.StatusCode, body), nil
	default:
		return false, nil
	}
}

// Do executes an API request. On a failed request the classified error is
// returned alongside the response, so callers can inspect both.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	url := c.baseURL + req.Path
	if req.Query != "" {
		url += "?" + req.Query
	}

	var bodyReader io.Reader

	if req.Body != nil {
		data, err := json.Marshal(p2p.NormalizeRequest(req.Body))
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    url,
		})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method": req.Method,
			"url":    url,
			"status": httpResp.StatusCode,
			"body":   string(body),
		})
	}

	err = p2p.Classify(req.Method, url, httpResp.StatusCode, body)
	if err != nil {
		// Classified server errors are expected business failures; only a
		// 5xx no rule recognizes gets the error-level log.
		if httpResp.StatusCode >= 500 && c.logger != nil &&
			p2p.ClassifyKind(httpResp.StatusCode, body) == p2p.ErrorKindGeneric {
			c.logger.Error("unexpected server error", map[string]interface{}{
				"method": req.Method,
				"url":    url,
				"status": httpResp.StatusCode,
				"body":   string(body),
			})
		}

		return resp, err
	}

	return resp, nil
}

// Get performs a GET request. query is an already-encoded query string.
func (c *Client) Get(ctx context.Context, path, query string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path, query string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Query: query, Body: body})
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path, query string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Query: query, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}
