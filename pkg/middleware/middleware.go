package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ymcoiffure/salon-bookings/pkg/logger"
)

const (
	RequestIDHeader = "X-Request-ID"

	maxRequestIDLen = 64
)

// RequestID reuses a caller supplied id when it is short enough to log,
// otherwise mints a fresh uuid. The id is echoed back in the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), logger.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ServiceName tags the request context so every log line names the service.
func ServiceName(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), logger.ServiceKey, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Logging writes one access line per request through pkg/logger.
func Logging(next http.Handler) http.Handler {
	return chimw.RequestLogger(accessLogger{})(next)
}

type accessLogger struct{}

func (accessLogger) NewLogEntry(r *http.Request) chimw.LogEntry {
	return &accessEntry{r: r}
}

type accessEntry struct {
	r *http.Request
}

func (e *accessEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	attrs := []any{
		"method", e.r.Method,
		"path", e.r.URL.Path,
		"status", status,
		"bytes", bytes,
		"elapsed_ms", elapsed.Milliseconds(),
		"client_ip", ClientIP(e.r),
	}
	if rc := chi.RouteContext(e.r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			attrs = append(attrs, "route", pattern)
		}
	}

	ctx := e.r.Context()
	switch {
	case status >= http.StatusInternalServerError:
		logger.ErrorContext(ctx, "HTTP request failed", attrs...)
	case status == http.StatusTooManyRequests || status == http.StatusUnauthorized:
		logger.WarnContext(ctx, "HTTP request rejected", attrs...)
	default:
		logger.InfoContext(ctx, "HTTP request completed", attrs...)
	}
}

func (e *accessEntry) Panic(v interface{}, stack []byte) {
	logger.ErrorContext(e.r.Context(), "HTTP request panic",
		"panic", v,
		"stack", string(stack),
		"method", e.r.Method,
		"path", e.r.URL.Path,
	)
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Health answers GET /healthz before routing, so it bypasses CORS and auth.
func Health(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})
}
