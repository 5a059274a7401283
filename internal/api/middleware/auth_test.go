package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/api/middleware"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/config"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/mocks"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionSecret = "0123456789abcdef0123456789abcdef"

func newSessionService(t *testing.T, lifetimeMinutes int) auth.SessionService {
	t.Helper()
	sessions, err := auth.NewSessionService(config.AuthConfig{
		SessionSecret:        testSessionSecret,
		TokenLifetimeMinutes: lifetimeMinutes,
	})
	require.NoError(t, err)
	return sessions
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) shared.Envelope {
	t.Helper()
	var env shared.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	sessions := newSessionService(t, 60)

	nextCalled := func(captured *uuid.UUID) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := middleware.GetUserID(r); ok {
				*captured = id
			}
			w.WriteHeader(http.StatusOK)
		})
	}

	t.Run("missing token is rejected", func(t *testing.T) {
		t.Parallel()

		var captured uuid.UUID
		handler := middleware.NewAuthMiddleware(sessions).Authenticate(nextCalled(&captured))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/auth/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, shared.CodeUnauthorized, env.Code)
		assert.Equal(t, middleware.MsgLoginRequired, env.Message)
		assert.Equal(t, uuid.Nil, captured)
	})

	t.Run("valid cookie passes identity through", func(t *testing.T) {
		t.Parallel()

		token, err := sessions.IssueToken(context.Background(), userID)
		require.NoError(t, err)

		var captured uuid.UUID
		handler := middleware.NewAuthMiddleware(sessions).Authenticate(nextCalled(&captured))

		req := httptest.NewRequest("GET", "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, captured)
	})

	t.Run("valid bearer header passes identity through", func(t *testing.T) {
		t.Parallel()

		token, err := sessions.IssueToken(context.Background(), userID)
		require.NoError(t, err)

		var captured uuid.UUID
		handler := middleware.NewAuthMiddleware(sessions).Authenticate(nextCalled(&captured))

		req := httptest.NewRequest("GET", "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, captured)
	})

	t.Run("garbage token is rejected as login required", func(t *testing.T) {
		t.Parallel()

		var captured uuid.UUID
		handler := middleware.NewAuthMiddleware(sessions).Authenticate(nextCalled(&captured))

		req := httptest.NewRequest("GET", "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, middleware.MsgLoginRequired, env.Message)
	})

	t.Run("expired token reports session expiry", func(t *testing.T) {
		t.Parallel()

		expiredToken := signExpiredToken(t, uuid.New())

		var captured uuid.UUID
		handler := middleware.NewAuthMiddleware(sessions).Authenticate(nextCalled(&captured))

		req := httptest.NewRequest("GET", "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+expiredToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, middleware.MsgSessionExpired, env.Message)
	})
}

// signExpiredToken mints a token whose expiry is well in the past, signed with
// the shared test secret. Waiting out a short lifetime would be flaky.
func signExpiredToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()

	claims := jwt.MapClaims{
		"uid": userID.String(),
		"sub": userID.String(),
		"iat": jwt.NewNumericDate(time.Now().Add(-3 * time.Hour)),
		"exp": jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		"jti": uuid.New().String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSessionSecret))
	require.NoError(t, err)
	return signed
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	users := mocks.NewUserStore()

	admin, err := domain.NewUser("admin@qaforge.dev", "Admin", "password123")
	require.NoError(t, err)
	admin.Role = domain.UserRoleAdmin
	require.NoError(t, users.Create(context.Background(), admin))

	member, err := domain.NewUser("user@qaforge.dev", "User", "password123")
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), member))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.NewAdminMiddleware(users).RequireAdmin(next)

	serveAs := func(userID uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/admin/users", nil)
		ctx := context.WithValue(req.Context(), shared.UserIDContextKey, userID)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(ctx))
		return rec
	}

	t.Run("admin passes", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, http.StatusOK, serveAs(admin.ID).Code)
	})

	t.Run("regular user is forbidden", func(t *testing.T) {
		t.Parallel()

		rec := serveAs(member.ID)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, shared.CodeForbidden, env.Code)
		assert.Equal(t, middleware.MsgAdminRequired, env.Message)
	})

	t.Run("unknown user is treated as unauthenticated", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, http.StatusUnauthorized, serveAs(uuid.New()).Code)
	})

	t.Run("missing identity is rejected", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/api/admin/users", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
