package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"campus-maintenance-system/pkg/auth"
	"campus-maintenance-system/pkg/response"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	traceIDContextKey   contextKey = "trace_id"
)

// TokenVerifier turns a bearer token into a principal.
type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

func PrincipalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(auth.Principal)
	return p, ok
}

func BearerToken(header string) string {
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return ""
	}
	return strings.TrimSpace(token)
}

func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Error(w, http.StatusUnauthorized, "Missing Authorization header", "")
				return
			}

			token := BearerToken(authHeader)
			if token == "" {
				response.Error(w, http.StatusUnauthorized, "Invalid token format", "Format must be Bearer <token>")
				return
			}

			principal, err := verifier.Verify(token)
			if err != nil {
				msg := "Invalid or expired token"
				if errors.Is(err, auth.ErrExpiredToken) {
					msg = "Token has expired"
				}
				response.Error(w, http.StatusUnauthorized, msg, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
