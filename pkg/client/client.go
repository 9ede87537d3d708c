// Package client provides the HTTP transport shared by the job-board
// adapters: JSON GET and form POST with per-provider headers, request
// pacing, an optional response cache and typed errors for non-2xx answers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/lang-salary-stats/pkg/cache"
	"github.com/Sternrassler/lang-salary-stats/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for provider requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobstats_requests_total",
		Help: "Total provider requests by provider and status",
	}, []string{"provider", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobstats_request_duration_seconds",
		Help:    "Provider request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"provider"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobstats_errors_total",
		Help: "Total provider request errors by class",
	}, []string{"provider", "class"})
)

// DefaultTimeout bounds a single request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// maxErrorBody is how much of a failed response body ends up in RequestError.
const maxErrorBody = 512

// Cache stores response bodies. *cache.Manager implements it.
type Cache interface {
	Get(ctx context.Context, key cache.Key) (*cache.Entry, error)
	Set(ctx context.Context, key cache.Key, entry *cache.Entry) error
}

// Config holds the client configuration.
type Config struct {
	// Provider is a short name used in errors, logs, metrics and cache keys.
	Provider string

	// BaseURL is prefixed to relative request paths.
	BaseURL string

	// UserAgent header sent with every request (REQUIRED).
	UserAgent string

	// Timeout per request (default: DefaultTimeout).
	Timeout time.Duration

	// Header is added to every request, e.g. an application key.
	Header http.Header

	// HTTPClient overrides the default client; its Timeout is left untouched.
	HTTPClient *http.Client

	// Cache is optional. Only requests made WithCacheTTL consult it.
	Cache Cache

	// RateLimiter is optional.
	RateLimiter *ratelimit.Tracker
}

// Client performs requests against one provider.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	cache       Cache
	rateLimiter *ratelimit.Tracker
	config      Config
	logger      zerolog.Logger
}

// New creates a new provider client.
func New(cfg Config) (*Client, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("provider name is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     base,
		cache:       cfg.Cache,
		rateLimiter: cfg.RateLimiter,
		config:      cfg,
		logger:      log.With().Str("component", "client").Str("provider", cfg.Provider).Logger(),
	}, nil
}

// Provider returns the configured provider name.
func (c *Client) Provider() string {
	return c.config.Provider
}

// RequestOption customises a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	header   http.Header
	cacheTTL time.Duration
}

// WithBearer sends an OAuth access token.
func WithBearer(token string) RequestOption {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithHeader sets a header on this request only.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.header == nil {
			o.header = http.Header{}
		}
		o.header.Set(key, value)
	}
}

// WithCacheTTL caches a successful GET for ttl when the client has a cache.
func WithCacheTTL(ttl time.Duration) RequestOption {
	return func(o *requestOptions) {
		o.cacheTTL = ttl
	}
}

// GetJSON performs a GET request and decodes the JSON response into out.
// path may be relative to BaseURL or absolute.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any, opts ...RequestOption) error {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	u, err := c.resolve(path)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	useCache := c.cache != nil && o.cacheTTL > 0
	key := cache.Key{Provider: c.config.Provider, Endpoint: u.Path, Query: query}

	if useCache {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			if decodeErr := json.Unmarshal(entry.Data, out); decodeErr == nil {
				c.logger.Debug().
					Str("endpoint", u.Path).
					Dur("ttl", entry.TTL()).
					Msg("Cache hit")
				return nil
			}
			c.logger.Warn().Str("endpoint", u.Path).Msg("Cached body does not decode - refetching")
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", u.Path).Msg("Cache get error")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, values := range o.header {
		req.Header[k] = values
	}

	body, header, err := c.do(req)
	if err != nil {
		return err
	}

	if err := c.decode(req, body, out); err != nil {
		return err
	}

	if useCache {
		if err := c.cache.Set(ctx, key, cache.NewEntry(body, header, o.cacheTTL)); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", u.Path).Msg("Failed to cache response")
		} else {
			c.logger.Debug().Str("endpoint", u.Path).Dur("ttl", o.cacheTTL).Msg("Cached response")
		}
	}

	return nil
}

// PostForm sends form as application/x-www-form-urlencoded and decodes the
// JSON response into out. endpoint may be relative to BaseURL or absolute.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	u, err := c.resolve(endpoint)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, _, err := c.do(req)
	if err != nil {
		return err
	}

	return c.decode(req, body, out)
}

// do executes req with pacing, default headers and status checking. It
// returns the full body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, http.Header, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	for k, values := range c.config.Header {
		if _, set := req.Header[k]; !set {
			req.Header[k] = values
		}
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Str("query", req.URL.RawQuery).
		Msg("Executing request")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.WithLabelValues(c.config.Provider).Observe(time.Since(startTime).Seconds())
	if err != nil {
		errorsTotal.WithLabelValues(c.config.Provider, string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(c.config.Provider, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, nil, &RequestError{
			Provider:   c.config.Provider,
			Method:     req.Method,
			Endpoint:   endpoint,
			ErrorClass: ErrorClassNetwork,
			Err:        err,
		}
	}
	defer resp.Body.Close()

	if c.rateLimiter != nil {
		c.rateLimiter.Observe(resp.StatusCode, resp.Header)
	}
	requestsTotal.WithLabelValues(c.config.Provider, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errClass := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(c.config.Provider, string(errClass)).Inc()

		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := strings.TrimSpace(string(snippet))
		if message == "" {
			message = resp.Status
		}

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Provider request error")

		return nil, nil, &RequestError{
			Provider:   c.config.Provider,
			Method:     req.Method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    message,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(c.config.Provider, string(ErrorClassNetwork)).Inc()
		return nil, nil, &RequestError{
			Provider:   c.config.Provider,
			Method:     req.Method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	return body, resp.Header, nil
}

// decode unmarshals a 2xx body into out.
func (c *Client) decode(req *http.Request, body []byte, out any) error {
	if out == nil {
		return nil
	}

	if err := json.NewDecoder(bytes.NewReader(body)).Decode(out); err != nil {
		errorsTotal.WithLabelValues(c.config.Provider, string(ErrorClassDecode)).Inc()
		return &RequestError{
			Provider:   c.config.Provider,
			Method:     req.Method,
			Endpoint:   req.URL.Path,
			StatusCode: http.StatusOK,
			ErrorClass: ErrorClassDecode,
			Message:    "decode response",
			Err:        err,
		}
	}

	return nil
}

// resolve turns a relative path into a URL under BaseURL. Absolute URLs are
// used as given.
func (c *Client) resolve(path string) (*url.URL, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse request path %q: %w", path, err)
	}
	if u.IsAbs() {
		return u, nil
	}

	resolved := *c.baseURL
	resolved.Path = strings.TrimSuffix(c.baseURL.Path, "/") + "/" + strings.TrimPrefix(u.Path, "/")
	resolved.RawPath = ""
	resolved.RawQuery = u.RawQuery
	return &resolved, nil
}
