package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/raphaelgruber/campusdesk/internal/auth"
)

// maxPathLogLen is the maximum length for logged paths before truncation.
const maxPathLogLen = 200

// slowRequestThreshold is the duration above which requests are logged at WARN level.
// Chat requests wait on the provider, so they are held to a looser bound.
const (
	slowRequestThreshold     = 100 * time.Millisecond
	slowChatRequestThreshold = 10 * time.Second
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs every request with timing.
// 5xx responses are logged at ERROR, slow requests at WARN.
func LoggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tmpl, err := cur.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			attrs := []any{
				"method", r.Method,
				"route", truncate(route, maxPathLogLen),
				"status", rec.status,
				"duration_ms", duration.Milliseconds(),
			}

			threshold := slowRequestThreshold
			if route == "/api/chatbot/message" {
				threshold = slowChatRequestThreshold
			}

			switch {
			case rec.status >= http.StatusInternalServerError:
				logger.Error("request failed", attrs...)
			case duration > threshold:
				logger.Warn("slow request", attrs...)
			default:
				logger.Debug("request completed", attrs...)
			}
		})
	}
}

// AuthMiddleware resolves the caller's identity and stores it in the request
// context. Unresolved requests are rejected before reaching the handler.
func AuthMiddleware(resolver auth.Resolver, logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := resolver.Resolve(r)
			if err != nil {
				logger.Debug("identity rejected", "path", truncate(r.URL.Path, maxPathLogLen), "error", err)
				writeError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
