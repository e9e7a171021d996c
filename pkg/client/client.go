// Package client provides the repository API HTTP client with request
// instrumentation and error handling.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for repository API client operations.
var (
	bdrRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bdr_requests_total",
		Help: "Total repository API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	bdrRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bdr_request_duration_seconds",
		Help:    "Repository API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	bdrErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bdr_errors_total",
		Help: "Total repository API errors by class",
	}, []string{"class"})
)

// DefaultTimeout is the per-request timeout used when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// maxErrorBodyBytes limits how much of an error response body is kept for
// the error message.
const maxErrorBodyBytes = 512

// Client is the repository API client. One underlying HTTP connection pool
// is reused across all calls.
type Client struct {
	httpClient *http.Client
	serverRoot string
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// ServerRoot is the base URL of the repository, e.g.
	// "https://repository.library.brown.edu". Required.
	ServerRoot string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout is the per-request timeout (default: DefaultTimeout).
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration for the given server root.
func DefaultConfig(serverRoot string) Config {
	return Config{
		ServerRoot: serverRoot,
		UserAgent:  "collection-size-query/1.0",
		Timeout:    DefaultTimeout,
	}
}

// New creates a new repository API client.
func New(cfg Config) (*Client, error) {
	if cfg.ServerRoot == "" {
		return nil, fmt.Errorf("server root is required")
	}

	parsed, err := url.Parse(cfg.ServerRoot)
	if err != nil {
		return nil, fmt.Errorf("parse server root: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("server root must be an http(s) URL (got %q)", cfg.ServerRoot)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	logger := log.With().Str("component", "bdr-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		serverRoot: strings.TrimRight(cfg.ServerRoot, "/"),
		config:     cfg,
		logger:     logger,
	}, nil
}

// Do performs an HTTP request with instrumentation and error classification.
// Responses with status >= 400 are converted to *APIError; the caller never
// sees a non-2xx response body except through the error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		bdrRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing repository API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errClass := classifyError(nil, err)
		bdrErrorsTotal.WithLabelValues(string(errClass)).Inc()
		bdrRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, &APIError{
			Endpoint:   endpoint,
			ErrorClass: errClass,
			Message:    "request failed",
			Err:        err,
		}
	}

	bdrRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		errClass := classifyError(resp, nil)
		bdrErrorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Repository API request error")

		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		resp.Body.Close()

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			ErrorClass: errClass,
			Message:    strings.TrimSpace(string(snippet)),
		}
	}

	return resp, nil
}

// Get performs a GET request against an endpoint path under the server root,
// with the given query parameters.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	u := c.serverRoot + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// GetJSON performs a GET request and decodes the JSON response body into v.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, v any) error {
	resp, err := c.Get(ctx, endpoint, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// ServerRoot returns the normalized server root URL.
func (c *Client) ServerRoot() string {
	return c.serverRoot
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
