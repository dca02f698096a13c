package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/linkup/messenger/internal/models"
	"github.com/linkup/messenger/internal/store"
	"github.com/linkup/messenger/internal/token"
)

type contextKey string

const userKey contextKey = "user"

// UserFromContext returns the authenticated user attached by RequireAuth.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}

// RequireAuth validates the Bearer token on each request and loads the
// resolved user into the request context. Unlike the websocket handshake,
// REST requests without a valid credential are rejected outright.
func RequireAuth(tokens *token.Provider, s store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, ok := tokens.Validate(strings.TrimPrefix(header, "Bearer "))
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := s.GetUserByEmail(claims.Subject)
			if err != nil || !user.Enabled {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
