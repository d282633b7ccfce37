package middleware

import (
	"context"
	"net/http"
	"strings"

	"app/internal/logger"
	"app/internal/util"
)

// contextKey avoids collisions with other packages' context values.
type contextKey string

// UserContextKey holds the authenticated user's ID.
const UserContextKey = contextKey("user")

// bearerToken extracts the token from an Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware validates the bearer token and injects the user ID
// into the request context.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.New()

			tokenString, ok := bearerToken(r)
			if !ok {
				log.Warn().Str("path", r.URL.Path).Msg("Missing or malformed authorization header")
				http.Error(w, "Missing or malformed authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := util.ValidateJWT(tokenString, jwtSecret)
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Token rejected")
				http.Error(w, "Invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
