package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sandeepkv93/account-lifecycle-service/internal/http/response"
	"github.com/sandeepkv93/account-lifecycle-service/internal/observability"
	"github.com/sandeepkv93/account-lifecycle-service/internal/security"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
)

// AccessTokenParser is satisfied by *security.JWTManager.
type AccessTokenParser interface {
	ParseAccessToken(raw string) (*security.Claims, error)
}

// AuthMiddleware requires a bearer access token and stores its claims on the
// request context.
func AuthMiddleware(parser AccessTokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				observability.RecordAccessTokenValidation(r.Context(), "missing")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication credentials were not provided", nil)
				return
			}
			claims, err := parser.ParseAccessToken(raw)
			if err != nil {
				observability.RecordAccessTokenValidation(r.Context(), "invalid")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Token is invalid or expired", nil)
				return
			}
			observability.RecordAccessTokenValidation(r.Context(), "valid")
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}
