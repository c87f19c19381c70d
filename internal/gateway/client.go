// Package gateway provides a typed client for the portfolio service REST API.
//
// Every response is parsed into the strict entities of the model package at this
// boundary; malformed records are dropped or defaulted here so that nothing above
// the gateway has to deal with optional or duck-typed fields.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ndewijer/portfolio-client/internal/apperrors"
)

const (
	DefaultBaseURL     = "http://localhost:5000/api"
	DefaultTimeout     = 30 * time.Second
	DefaultRateLimit   = 5 // requests per second
	DefaultHistoryDays = 30
)

// Client wraps a resty client and exposes one method per portfolio service operation.
// It implements both PortfolioAPI and AdvisorAPI.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP timeout applied to every request.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.http.SetTimeout(timeout)
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or negative disables limiting.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the underlying transport, e.g. with an httptest server client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		base := c.http.BaseURL
		c.http = resty.NewWithClient(hc).
			SetBaseURL(base).
			SetHeader("Accept", "application/json")
	}
}

// NewClient creates a client for the portfolio service rooted at baseURL.
// An empty baseURL falls back to DefaultBaseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(DefaultTimeout).
			SetHeader("Accept", "application/json"),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is the single human-readable form of any transport or HTTP failure.
// Error returns Message unmodified so that backend error strings reach the user verbatim.
type APIError struct {
	StatusCode int // 0 when the request never got a response
	Method     string
	Path       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorBody is the JSON shape the service uses for non-2xx responses.
type errorBody struct {
	Error string `json:"error"`
}

// newRequest returns a request bound to ctx with the JSON content type set.
func (c *Client) newRequest(ctx context.Context) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json")
}

// do executes req and decodes a successful JSON body into result (when non-nil).
// All failures are normalized into *APIError.
func (c *Client) do(ctx context.Context, method, path string, req *resty.Request, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &APIError{
			Method:  method,
			Path:    path,
			Message: fmt.Sprintf("request to %s cancelled: %v", path, err),
			Err:     err,
		}
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Debug("portfolio service request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return &APIError{
			Method:  method,
			Path:    path,
			Message: fmt.Sprintf("request to %s failed: %v", path, err),
			Err:     err,
		}
	}

	c.logger.Debug("portfolio service request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(start)))

	if !resp.IsSuccess() {
		return newStatusError(method, path, resp.StatusCode(), resp.Body())
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode(),
			Method:     method,
			Path:       path,
			Message:    fmt.Sprintf("%s: %s", apperrors.ErrMalformedResponse, path),
			Err:        errors.Join(apperrors.ErrMalformedResponse, err),
		}
	}
	return nil
}

// newStatusError extracts the service's error message from a non-2xx body, falling
// back to a generic status message when the body is absent or unparsable.
func newStatusError(method, path string, status int, body []byte) *APIError {
	msg := fmt.Sprintf("request failed with status %d", status)

	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil && strings.TrimSpace(eb.Error) != "" {
		msg = eb.Error
	}

	return &APIError{
		StatusCode: status,
		Method:     method,
		Path:       path,
		Message:    msg,
	}
}
