package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
	"github.com/zatekoja/servicemarket/pkg/auth"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

// AuthMiddleware resolves the bearer token into an identity on the request
// context. Requests without a token pass through anonymously and the
// services decide whether the operation needs an identity; a token that
// fails verification is rejected with 401.
func AuthMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				unauthorized(w, "malformed Authorization header")
				return
			}

			claims, err := tokens.Parse(strings.TrimSpace(token))
			if err != nil {
				observability.LoggerFromContext(r.Context()).Debug().Err(err).Msg("rejected bearer token")
				unauthorized(w, "invalid or expired token")
				return
			}

			role := entities.UserRole(claims.Role)
			switch role {
			case entities.RoleCustomer, entities.RoleProvider, entities.RoleAdmin:
			default:
				unauthorized(w, "token carries an unknown role")
				return
			}

			id := entities.Identity{UserID: claims.Subject, Role: role}
			next.ServeHTTP(w, r.WithContext(entities.ContextWithIdentity(r.Context(), id)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"type":  string(apperrors.ErrorTypeUnauthorized),
	})
}
