package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ignite/audience-feasibility/internal/catalog"
	"github.com/ignite/audience-feasibility/internal/feasibility"
	"github.com/ignite/audience-feasibility/internal/pkg/httputil"
	"github.com/ignite/audience-feasibility/internal/pkg/logger"
	"github.com/ignite/audience-feasibility/internal/pkg/ratelimit"
	"github.com/ignite/audience-feasibility/internal/search"
)

// =============================================================================
// ERROR SANITIZER
// Cluster addresses, index names and raw search responses are never sent to
// API consumers. 5xx errors return a generic message and the full error is
// logged server-side.
// =============================================================================

// statusFor maps an error from the engine or the catalog to an HTTP status.
func statusFor(err error) int {
	switch {
	case feasibility.IsClientError(err), errors.Is(err, catalog.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes the response for err, logging anything that is
// not the caller's fault.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := safeErrorMessage(code, err)

	if code >= 500 {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", code,
			"data_source", feasibility.IsDataSourceError(err),
			"error", err.Error(),
		)
	}
	httputil.Error(w, code, msg)
}

// safeErrorMessage maps internal errors to public-safe messages.
// For 400-level errors the original message is returned (user input issues).
func safeErrorMessage(code int, internalErr error) string {
	if code < 500 {
		if internalErr != nil {
			return internalErr.Error()
		}
		return "Bad request"
	}

	if internalErr == nil {
		return "An internal error occurred"
	}

	if errors.Is(internalErr, search.ErrMalformedResponse) {
		return "Unexpected response from the search cluster"
	}

	errStr := strings.ToLower(internalErr.Error())

	switch {
	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp"):
		return "Search cluster temporarily unavailable"

	case strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context canceled"):
		return "Request timed out"

	case strings.Contains(errStr, "search_phase_execution_exception") ||
		strings.Contains(errStr, "index_not_found_exception") ||
		strings.Contains(errStr, "status 5"):
		return "The search cluster rejected the query"

	default:
		return "An internal error occurred"
	}
}
