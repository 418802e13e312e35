package httpapi

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/streamhub/corehub/internal/metrics"
	"github.com/streamhub/corehub/internal/requestctx"
)

// Middleware wraps a handler. Grounded on internal/server/middleware.go's
// RecoveryMiddleware/RequestIDMiddleware/LoggingMiddleware chain.
type Middleware func(http.Handler) http.Handler

func chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RecoveryMiddleware converts a panic into a 500 rather than crashing the
// serving goroutine.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("stack", string(debug.Stack())).Str("path", r.URL.Path).Msg("panic recovered")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"id":"unexpectedError","message":"internal server error"}}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware stamps a request id, generating one if the caller
// didn't supply X-Request-ID, and attaches it (plus the request's start
// time) to the context via requestctx.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}

		ctx := requestctx.WithRequestID(r.Context(), id)
		ctx = requestctx.WithRequestTime(ctx, time.Now())

		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// routeLabel collapses a resolved request path down to its resource kind,
// dropping the leading username and any trailing ids, so the corehub_http_*
// series stay bounded regardless of how many users or events exist.
func routeLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) <= 1 {
		return path
	}
	kind := segments[1]
	return "/" + kind
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware logs one structured line per completed request and
// records it under the corehub_http_* Prometheus series.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		metrics.IncrementInFlight()
		next.ServeHTTP(wrapped, r)
		metrics.DecrementInFlight()

		duration := time.Since(start)
		metrics.RecordHTTPRequest(r.Method, routeLabel(r.URL.Path), wrapped.status, duration, 0)

		log.Info().
			Str("request_id", requestctx.RequestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.status).
			Dur("duration", duration).
			Msg("request completed")
	})
}
