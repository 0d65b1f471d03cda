package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/ymcoiffure/salon-bookings/internal/http/response"
	"github.com/ymcoiffure/salon-bookings/pkg/logger"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit limits requests per client IP and route. Limiter errors let the
// request through.
func RateLimit(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + ClientIP(r) + ":" + r.URL.Path
			ok, err := l.Allow(r.Context(), key)
			if err != nil {
				logger.WarnContext(r.Context(), "Rate limiter unavailable, failing open", "error", err)
			}
			if !ok && err == nil {
				response.RateLimit(w, "Trop de tentatives, merci de réessayer plus tard")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP is the peer address of the request. Forwarding headers are not
// read here: behind a trusted proxy the router runs chi's RealIP first,
// which rewrites RemoteAddr from them.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
