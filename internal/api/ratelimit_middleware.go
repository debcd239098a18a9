package api

import (
	"net"
	"net/http"
	"strconv"

	"github.com/ignite/audience-feasibility/internal/pkg/httputil"
	"github.com/ignite/audience-feasibility/internal/pkg/logger"
)

// RateLimit caps calls per client address. When Redis is unreachable the
// request goes through and the failure is logged.
func RateLimit(limiter RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			decision, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", "client", key, "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			if !decision.Allowed {
				logger.Info("rate limited", "client", key, "used", decision.Used, "limit", decision.Limit)
				httputil.TooManyRequests(w, decision.RetryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey is the caller address without its port. RealIP has already
// replaced RemoteAddr when a proxy header was present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
