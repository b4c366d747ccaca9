package trace

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	applog "ledger/internal/log"
)

type contextKey struct{}

// RequestIDHeader is echoed on every response and honoured on requests.
const RequestIDHeader = "X-Request-ID"

// Observer receives the outcome of each request.
type Observer interface {
	ObserveHTTP(method, route string, code int, d time.Duration)
}

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	route     func(*http.Request) string
	observer  Observer
	logs      *applog.StructuredLogger
}

// NewMiddleware creates a new trace middleware. route maps a request to a
// bounded label for metrics; nil uses the raw path.
func NewMiddleware(logger *applog.Logger, extractIP, route func(*http.Request) string, observer Observer) *Middleware {
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentTrace)
	}
	return &Middleware{
		extractIP: extractIP,
		route:     route,
		observer:  observer,
		logs:      applog.NewStructuredLogger(logger),
	}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)

		m.logs.LogHTTPStart(ctx, r, requestID, clientIP)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		m.logs.LogHTTPEnd(ctx, r, requestID, rw.statusCode, duration.Milliseconds(), clientIP)

		if m.observer != nil {
			route := r.URL.Path
			if m.route != nil {
				route = m.route(r)
			}
			m.observer.ObserveHTTP(r.Method, route, rw.statusCode, duration)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// WithRequestID returns ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}
