package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dom/account-auth/internal/service"
)

type contextKey string

const (
	UserClaimsKey contextKey = "userClaims"
)

// Auth requires a valid "Authorization: Bearer <access token>" header and
// stores the token claims in the request context.
func Auth(authService *service.AuthService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w)
				return
			}

			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || scheme != "Bearer" || token == "" {
				logger.DebugContext(r.Context(), "invalid authorization header format")
				unauthorized(w)
				return
			}

			claims, err := authService.ValidateAccessToken(token)
			if err != nil {
				logger.DebugContext(r.Context(), "access token rejected", slog.Any("error", err))
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserClaims(ctx context.Context) (*service.UserClaims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*service.UserClaims)
	return claims, ok
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"message": "user is not authorized",
		"errors":  []any{},
	})
}
