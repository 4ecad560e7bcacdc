package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds the request context. Upstream fetches observe the
// deadline and fail with context.DeadlineExceeded, which the error
// renderer maps to 504. A zero d disables the bound.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
