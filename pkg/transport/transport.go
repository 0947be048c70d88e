// Package transport provides the HTTP collaborator used by the catalog client.
// It owns everything the client deliberately does not: retries, throttling,
// rate limit cooldowns and header plumbing. Every HTTP status is returned to
// the caller as a Response; only failures without a response are errors.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/ratelimit"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public catalog API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 16 << 20

// ErrRateLimited is returned when a rate limit cooldown refuses dispatch.
var ErrRateLimited = errors.New("request blocked: rate limit cooldown")

// Prometheus metrics for catalog requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Total catalog requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Catalog request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})
)

// Request is a single call to the catalog service.
type Request struct {
	// Method defaults to GET.
	Method string

	// Path is appended to the base URL, e.g. "/albums/4aawyAB9vmqN3uQ7FjRGTy".
	Path string

	// Endpoint is the route template used as metric label, e.g. "/albums/{id}".
	// Defaults to Path.
	Endpoint string

	Query url.Values
	Body  []byte

	// Token is sent as a bearer token when non-empty.
	Token string
}

// Response is the raw outcome of a request that reached the service.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Config holds the transport configuration.
type Config struct {
	// BaseURL of the catalog API (REQUIRED)
	BaseURL string

	// User-Agent header (REQUIRED)
	UserAgent string

	// Timeout per HTTP attempt
	Timeout time.Duration

	// Retry
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Client-side throttle: requests per second (0 = unlimited) and burst
	RateLimit float64
	Burst     int

	// Tracker records 429 cooldowns (optional)
	Tracker *ratelimit.Tracker
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:      baseURL,
		UserAgent:    userAgent,
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 30 * time.Second,
		RateLimit:    10,
		Burst:        5,
	}
}

// HTTP is the retrying, throttled HTTP transport.
type HTTP struct {
	baseURL   string
	userAgent string
	client    *retryablehttp.Client
	limiter   *rate.Limiter
	tracker   *ratelimit.Tracker
	logger    zerolog.Logger
}

// New creates a new HTTP transport.
func New(cfg Config) (*HTTP, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base url must be an absolute http(s) url (got %q)", cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}
	if cfg.RetryWaitMax < cfg.RetryWaitMin {
		return nil, fmt.Errorf("retry_wait_max must be >= retry_wait_min")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "catalog-transport").Logger()

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	h := &HTTP{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(limit, burst),
		tracker:   cfg.Tracker,
		logger:    logger,
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.CheckRetry = h.checkRetry
	rc.Backoff = cappedBackoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = newLeveledLogger(logger)
	h.client = rc

	return h, nil
}

// Send performs req and returns the response for any HTTP status.
func (h *HTTP) Send(ctx context.Context, req *Request) (*Response, error) {
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = req.Path
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	if err := h.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	if h.tracker != nil {
		allowed, err := h.tracker.ShouldAllowRequest(ctx)
		if err != nil {
			return nil, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
			return nil, ErrRateLimited
		}
	}

	target := h.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body any
	if req.Body != nil {
		body = req.Body
	}
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("User-Agent", h.userAgent)
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	h.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Msg("Executing catalog request")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		h.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "read_error").Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode >= 400 {
		h.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(Classify(resp, nil))).
			Msg("Catalog request error")
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (h *HTTP) SetHTTPClient(client *http.Client) {
	h.client.HTTPClient = client
}
