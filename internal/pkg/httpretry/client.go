// Package httpretry provides an HTTP transport with automatic retry logic,
// exponential backoff, and jitter for resilient calls to the search cluster.
package httpretry

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/ignite/audience-feasibility/internal/pkg/logger"
)

// Transport wraps an http.RoundTripper with retry logic using exponential
// backoff and jitter.
type Transport struct {
	base       http.RoundTripper
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Option configures a Transport.
type Option func(*Transport)

// WithDelays overrides the backoff bounds.
func WithDelays(base, max time.Duration) Option {
	return func(t *Transport) {
		t.baseDelay = base
		t.maxDelay = max
	}
}

// NewTransport creates a Transport that wraps base.
// If base is nil, http.DefaultTransport is used.
// maxRetries is the number of retry attempts after the initial request (default 3).
func NewTransport(base http.RoundTripper, maxRetries int, opts ...Option) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	t := &Transport{
		base:       base,
		maxRetries: maxRetries,
		baseDelay:  1 * time.Second,
		maxDelay:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip executes the HTTP request with retry logic.
// It retries on retryable status codes (429, 500, 502, 503, 504) and
// transient network/timeout errors. It does NOT retry on client errors
// (400, 401, 403, 404) or context cancellation.
// On the final attempt, it returns the response as-is so the caller
// can inspect the status code and body.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		// Check if context is already canceled
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		try := req
		if attempt > 0 {
			// A retried request needs a fresh body
			if req.Body != nil && req.GetBody == nil {
				return nil, lastErr
			}
			try = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: failed to reset request body: %w", err)
				}
				try.Body = body
			}

			delay := t.calculateDelay(attempt)
			logger.Warn("retrying search request",
				"attempt", attempt,
				"max_retries", t.maxRetries,
				"method", req.Method,
				"host", req.URL.Host,
				"path", req.URL.Path,
				"delay", delay,
			)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, req.Context().Err()
			}
		}

		resp, err := t.base.RoundTrip(try)
		if err != nil {
			lastErr = err
			// If the context was canceled/expired, don't retry
			if req.Context().Err() != nil {
				return nil, err
			}
			// Network/connection/timeout error, retry
			continue
		}

		// Non-retryable status code: return immediately (success or client error)
		if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		// If this is the last attempt, return the response as-is
		// so the caller can read the body and handle the error
		if attempt == t.maxRetries {
			return resp, nil
		}

		// Retryable status code: drain body for connection reuse, then retry
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: server returned retryable status %d", resp.StatusCode)
	}

	return nil, lastErr
}

// calculateDelay returns the backoff duration for the given retry attempt.
// Uses exponential backoff with full jitter: random(0, min(maxDelay, baseDelay * 2^(attempt-1))).
func (t *Transport) calculateDelay(attempt int) time.Duration {
	expDelay := float64(t.baseDelay) * math.Pow(2, float64(attempt-1))

	// Cap at maxDelay
	if expDelay > float64(t.maxDelay) {
		expDelay = float64(t.maxDelay)
	}

	jittered := time.Duration(rand.Float64() * expDelay)

	// Ensure a minimum delay to avoid busy-looping
	floor := 100 * time.Millisecond
	if t.baseDelay < floor {
		floor = t.baseDelay
	}
	if jittered < floor {
		jittered = floor
	}

	return jittered
}

// isRetryableStatus returns true if the HTTP status code indicates a
// transient server error that should be retried.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
