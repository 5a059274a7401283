package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/redact"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/qaforge/qaforge/internal/store"
)

// SessionCookieName is the cookie that carries the session token for browser
// clients. API clients may send the same token as a bearer header instead.
const SessionCookieName = "qaforge_session"

// User-visible auth failure messages. Stable contract values.
const (
	MsgLoginRequired  = "请先登录"
	MsgSessionExpired = "登录状态已失效，请重新登录"
	MsgAdminRequired  = "需要管理员权限"
)

// AuthMiddleware resolves the caller's identity from the session token before
// any handler work happens.
type AuthMiddleware struct {
	sessions auth.SessionService
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(sessions auth.SessionService) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
	}
}

// Authenticate validates the session token from the qaforge_session cookie or
// the Authorization header and adds the user ID to the request context.
// Requests without a valid identity are rejected with 401 before reaching the
// handler.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractSessionToken(r)
		if token == "" {
			shared.RespondError(w, r, http.StatusUnauthorized, shared.CodeUnauthorized, MsgLoginRequired)
			return
		}

		claims, err := m.sessions.ValidateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondError(w, r, http.StatusUnauthorized, shared.CodeUnauthorized, MsgSessionExpired)
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenNotYetValid):
				shared.RespondError(w, r, http.StatusUnauthorized, shared.CodeUnauthorized, MsgLoginRequired)
			default:
				slog.Error("failed to validate session token", "error", redact.Error(err))
				shared.RespondError(w, r, http.StatusInternalServerError, shared.CodeGeneric, "服务器内部错误")
			}
			return
		}

		ctx := context.WithValue(r.Context(), shared.UserIDContextKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractSessionToken pulls the session token from the cookie or, failing
// that, a Bearer Authorization header.
func extractSessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AdminMiddleware restricts routes to users whose persisted role is ADMIN.
// It must run after Authenticate. The role is loaded per request so a
// demotion takes effect immediately, not at next login.
type AdminMiddleware struct {
	users store.UserStore
}

// NewAdminMiddleware creates a new AdminMiddleware with the given dependencies.
func NewAdminMiddleware(users store.UserStore) *AdminMiddleware {
	return &AdminMiddleware{
		users: users,
	}
}

// RequireAdmin rejects non-admin callers with 403.
func (m *AdminMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r)
		if !ok {
			shared.RespondError(w, r, http.StatusUnauthorized, shared.CodeUnauthorized, MsgLoginRequired)
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				shared.RespondError(w, r, http.StatusUnauthorized, shared.CodeUnauthorized, MsgLoginRequired)
				return
			}
			slog.Error("failed to load user for admin check", "error", redact.Error(err))
			shared.RespondError(w, r, http.StatusInternalServerError, shared.CodeGeneric, "服务器内部错误")
			return
		}

		if !user.IsAdmin() {
			shared.RespondError(w, r, http.StatusForbidden, shared.CodeForbidden, MsgAdminRequired)
			return
		}

		ctx := context.WithValue(r.Context(), CallerRoleContextKey, user.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerRoleContextKey carries the caller's persisted role after an admin
// check.
const CallerRoleContextKey shared.ContextKey = "callerRole"

// GetUserID extracts the user ID from the request context.
// Returns the user ID and a boolean indicating if it was found.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	return userID, ok
}

// GetCallerRole extracts the persisted caller role set by RequireAdmin.
func GetCallerRole(r *http.Request) (domain.UserRole, bool) {
	role, ok := r.Context().Value(CallerRoleContextKey).(domain.UserRole)
	return role, ok
}
