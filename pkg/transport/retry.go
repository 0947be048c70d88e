package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry decisions.
var (
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_errors_total",
		Help: "Total failed catalog attempts by class",
	}, []string{"class"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})
)

// ErrorClass represents a classification of failed attempts.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors (except 429).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Classify categorizes an attempt outcome. Successful outcomes yield "".
func Classify(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}
	if resp == nil {
		return ""
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// shouldRetry determines if an error class is worth another attempt.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx would fail the same way again
		return false
	}
}

// checkRetry is the retryablehttp policy. It sees every attempt, so it also
// feeds 429 responses to the rate limit tracker.
func (h *HTTP) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}

	class := Classify(resp, err)
	if class == "" {
		return false, nil
	}
	errorsTotal.WithLabelValues(string(class)).Inc()

	if resp != nil && h.tracker != nil {
		if trackErr := h.tracker.UpdateFromResponse(ctx, resp.StatusCode, resp.Header); trackErr != nil {
			h.logger.Warn().Err(trackErr).Msg("Failed to update rate limit state")
		}
	}

	if !shouldRetry(class) {
		return false, nil
	}

	retriesTotal.WithLabelValues(string(class)).Inc()
	h.logger.Debug().Str("error_class", string(class)).Msg("Retrying catalog request")
	return true, nil
}

// cappedBackoff is retryablehttp.DefaultBackoff with the wait bounded by max.
// DefaultBackoff honours a 429/503 Retry-After header verbatim.
func cappedBackoff(min, max time.Duration, attempt int, resp *http.Response) time.Duration {
	wait := retryablehttp.DefaultBackoff(min, max, attempt, resp)
	if wait > max {
		return max
	}
	return wait
}
