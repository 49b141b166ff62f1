package middleware

import "net/http"

// RouteMiddleware resolves the mux pattern up front so outer middleware can
// label logs, spans and metrics by route instead of by raw path.
func RouteMiddleware(mux *http.ServeMux) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, pattern := mux.Handler(r); pattern != "" {
				r = r.WithContext(r.Context())
				r.Pattern = pattern
			}
			next.ServeHTTP(w, r)
		})
	}
}
