package middleware

import (
	"net/http"
	"time"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
)

// LoggingMiddleware writes one access log line per request. Server errors
// are logged at error level.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		logger := observability.LoggerFromContext(r.Context())
		event := logger.Info()
		if rec.status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		if id, ok := entities.IdentityFromContext(r.Context()); ok {
			event = event.Str("user_id", id.UserID).Str("role", string(id.Role))
		}
		if rec.Header().Get(ReplayHeader) != "" {
			event = event.Bool("replayed", true)
		}
		event.
			Str("method", r.Method).
			Str("route", routeOf(r)).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
