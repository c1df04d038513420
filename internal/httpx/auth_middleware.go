package httpx

import (
	"context"
	"net/http"
	"strings"

	"libraryapi/internal/platform/crypto"
)

// BlacklistChecker reports whether an access token id was revoked by logout.
type BlacklistChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

func AuthMiddleware(secret string, blacklist BlacklistChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				Unauthorized(w, r)
				return
			}

			claims, err := crypto.ParseToken(secret, token)
			if err != nil {
				Unauthorized(w, r)
				return
			}

			if blacklist != nil {
				isBlacklisted, err := blacklist.IsBlacklisted(r.Context(), claims.ID)
				if err != nil || isBlacklisted {
					Unauthorized(w, r)
					return
				}
			}

			ctx := ContextWithUser(r.Context(), claims.Sub, claims.Role)
			ctx = ContextWithTokenID(ctx, claims.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserIDFrom(r) == "" {
				Unauthorized(w, r)
				return
			}
			if RoleFrom(r) != role {
				Forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
