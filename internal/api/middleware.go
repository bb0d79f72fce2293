package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"vidtube/internal/auth"
	"vidtube/internal/db"
	"vidtube/internal/models"
)

type contextKey string

const currentUserKey contextKey = "currentUser"

// AuthMiddleware is the only gate in front of identity-scoped routes: it
// verifies the access token and attaches the full user record to the request
// context before any handler runs.
type AuthMiddleware struct {
	tokens *auth.TokenService
	users  *db.UserRepository
}

func NewAuthMiddleware(tokens *auth.TokenService, users *db.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractAccessToken(r)
		if token == "" {
			unauthorized(w, "Authentication required")
			return
		}

		claims, err := m.tokens.ValidateAccessToken(token)
		if err != nil {
			unauthorized(w, "Invalid or expired token")
			return
		}

		user, err := m.users.FindByID(r.Context(), claims.Subject)
		if errors.Is(err, db.ErrNotFound) {
			unauthorized(w, "Invalid or expired token")
			return
		}
		if err != nil {
			slog.Error("error loading authenticated user", "error", err, "user_id", claims.Subject)
			internalError(w)
			return
		}

		ctx := context.WithValue(r.Context(), currentUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractAccessToken prefers the cookie over the Authorization header.
func extractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// CurrentUser returns the authenticated user attached by RequireAuth, or nil.
func CurrentUser(r *http.Request) *models.User {
	if v := r.Context().Value(currentUserKey); v != nil {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
