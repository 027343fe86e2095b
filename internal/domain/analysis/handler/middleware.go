package handler

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit applies a global token-bucket limit to the wrapped handler.
// Requests over the limit get 429 immediately rather than queueing.
func RateLimit(perSecond, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
