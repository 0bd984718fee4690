package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/example/marketplace-orders/internal/auth"
)

type contextKey string

const UserContextKey contextKey = "user"

func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ExtractToken returns the bearer token from the access_token cookie, the
// Authorization header, or the token query parameter, in that order.
func ExtractToken(r *http.Request) string {
	if cookie, err := r.Cookie("access_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// Browsers cannot set headers on a WebSocket handshake
	return r.URL.Query().Get("token")
}

// AuthMiddleware rejects requests without a valid access token and stores
// the claims in the request context.
func AuthMiddleware(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				respondError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := jwtService.ValidateAccessToken(token)
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				respondError(w, "token expired", http.StatusUnauthorized)
				return
			case err != nil:
				respondError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, claims)))
		})
	}
}

// GetUserFromContext retrieves user claims from the request context
func GetUserFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*auth.Claims)
	return claims, ok
}

// guard runs allow against the caller's claims. It must sit behind
// AuthMiddleware.
func guard(allow func(r *http.Request, c *auth.Claims) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserFromContext(r.Context())
			if !ok {
				respondError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !allow(r, claims) {
				respondError(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole checks if the user has one of the required roles
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return guard(func(_ *http.Request, c *auth.Claims) bool {
		return slices.Contains(roles, c.Role)
	})
}

// RequireActor checks that the caller may act as role for the id found in
// the named path value.
func RequireActor(role, pathValue string) func(http.Handler) http.Handler {
	return guard(func(r *http.Request, c *auth.Claims) bool {
		return c.CanActAs(role, r.PathValue(pathValue))
	})
}
