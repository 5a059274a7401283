package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/api"
	"github.com/qaforge/qaforge/internal/api/middleware"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/config"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/mocks"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) auth.SessionService {
	t.Helper()
	sessions, err := auth.NewSessionService(config.AuthConfig{
		SessionSecret:        "0123456789abcdef0123456789abcdef",
		TokenLifetimeMinutes: 60,
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

// withIdentity injects the caller identity the auth middleware would have set.
func withIdentity(r *http.Request, userID uuid.UUID) *http.Request {
	ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
	return r.WithContext(ctx)
}

func newAuthHandler(t *testing.T) (*api.AuthHandler, *mocks.UserStore) {
	t.Helper()
	users := mocks.NewUserStore()
	handler := api.NewAuthHandler(users, mocks.NewSettingsStore(), newTestSessions(t),
		auth.NewBcryptHasher(), time.Hour)
	return handler, users
}

func registerUser(t *testing.T, handler *api.AuthHandler, email string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"email":"` + email + `","displayName":"Tester","password":"password123"}`
	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)
	return rec
}

func TestAuthRegister(t *testing.T) {
	t.Parallel()

	t.Run("creates user and starts a session", func(t *testing.T) {
		t.Parallel()

		handler, users := newAuthHandler(t)
		rec := registerUser(t, handler, "new@qaforge.dev")

		require.Equal(t, http.StatusCreated, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, shared.CodeOK, env.Code)
		assert.Equal(t, "注册成功", env.Message)

		data, ok := env.Data.(map[string]interface{})
		require.True(t, ok)
		assert.NotEmpty(t, data["token"])

		var sessionCookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == middleware.SessionCookieName {
				sessionCookie = c
			}
		}
		require.NotNil(t, sessionCookie)
		assert.NotEmpty(t, sessionCookie.Value)
		assert.True(t, sessionCookie.HttpOnly)

		stored, err := users.GetByEmail(context.Background(), "new@qaforge.dev")
		require.NoError(t, err)
		assert.Equal(t, domain.UserRoleUser, stored.Role)
		assert.NotEqual(t, "password123", stored.HashedPassword)
		assert.Empty(t, stored.Password)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		t.Parallel()

		handler, _ := newAuthHandler(t)
		require.Equal(t, http.StatusCreated, registerUser(t, handler, "dup@qaforge.dev").Code)

		rec := registerUser(t, handler, "dup@qaforge.dev")
		assert.Equal(t, http.StatusConflict, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, shared.CodeValidation, env.Code)
	})

	t.Run("short password fails validation", func(t *testing.T) {
		t.Parallel()

		handler, _ := newAuthHandler(t)
		body := `{"email":"x@qaforge.dev","displayName":"T","password":"short"}`
		req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Register(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, shared.CodeValidation, decodeEnvelope(t, rec).Code)
	})

	t.Run("malformed body uses the fixed message", func(t *testing.T) {
		t.Parallel()

		handler, _ := newAuthHandler(t)
		req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		handler.Register(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, shared.MsgMalformedJSON, decodeEnvelope(t, rec).Message)
	})
}

func TestAuthLogin(t *testing.T) {
	t.Parallel()

	login := func(handler *api.AuthHandler, email, password string) *httptest.ResponseRecorder {
		body := `{"email":"` + email + `","password":"` + password + `"}`
		req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Login(rec, req)
		return rec
	}

	t.Run("valid credentials issue a token", func(t *testing.T) {
		t.Parallel()

		handler, _ := newAuthHandler(t)
		registerUser(t, handler, "login@qaforge.dev")

		rec := login(handler, "login@qaforge.dev", "password123")
		require.Equal(t, http.StatusOK, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, "登录成功", env.Message)

		data, ok := env.Data.(map[string]interface{})
		require.True(t, ok)
		assert.NotEmpty(t, data["token"])
	})

	t.Run("wrong password and unknown user look identical", func(t *testing.T) {
		t.Parallel()

		handler, _ := newAuthHandler(t)
		registerUser(t, handler, "probe@qaforge.dev")

		wrongPassword := login(handler, "probe@qaforge.dev", "wrong-password")
		unknownUser := login(handler, "ghost@qaforge.dev", "password123")

		for _, rec := range []*httptest.ResponseRecorder{wrongPassword, unknownUser} {
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, shared.CodeBadCredential, env.Code)
			assert.Equal(t, "邮箱或密码错误", env.Message)
		}
	})

	t.Run("deactivated account cannot log in", func(t *testing.T) {
		t.Parallel()

		handler, users := newAuthHandler(t)
		registerUser(t, handler, "inactive@qaforge.dev")

		user, err := users.GetByEmail(context.Background(), "inactive@qaforge.dev")
		require.NoError(t, err)
		user.Active = false
		require.NoError(t, users.Update(context.Background(), user))

		rec := login(handler, "inactive@qaforge.dev", "password123")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, shared.CodeBadCredential, decodeEnvelope(t, rec).Code)
	})
}

func TestAuthMe(t *testing.T) {
	t.Parallel()

	handler, users := newAuthHandler(t)
	registerUser(t, handler, "me@qaforge.dev")
	user, err := users.GetByEmail(context.Background(), "me@qaforge.dev")
	require.NoError(t, err)

	t.Run("returns the caller's profile", func(t *testing.T) {
		t.Parallel()

		req := withIdentity(httptest.NewRequest("GET", "/api/auth/me", nil), user.ID)
		rec := httptest.NewRecorder()
		handler.Me(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		env := decodeEnvelope(t, rec)
		data, ok := env.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "me@qaforge.dev", data["email"])
		// The hashed password must never leak into the response.
		assert.NotContains(t, rec.Body.String(), user.HashedPassword)
	})

	t.Run("unknown caller yields not found", func(t *testing.T) {
		t.Parallel()

		req := withIdentity(httptest.NewRequest("GET", "/api/auth/me", nil), uuid.New())
		rec := httptest.NewRecorder()
		handler.Me(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAuthSettings(t *testing.T) {
	t.Parallel()

	handler, users := newAuthHandler(t)
	registerUser(t, handler, "settings@qaforge.dev")
	user, err := users.GetByEmail(context.Background(), "settings@qaforge.dev")
	require.NoError(t, err)

	t.Run("defaults are served before the first save", func(t *testing.T) {
		req := withIdentity(httptest.NewRequest("GET", "/api/auth/settings", nil), user.ID)
		rec := httptest.NewRecorder()
		handler.GetSettings(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		env := decodeEnvelope(t, rec)
		data, ok := env.Data.(map[string]interface{})
		require.True(t, ok)
		assert.NotEmpty(t, data["theme"])
	})

	t.Run("partial update keeps unmentioned fields", func(t *testing.T) {
		body := `{"theme":"dark"}`
		req := withIdentity(httptest.NewRequest("PUT", "/api/auth/settings", strings.NewReader(body)), user.ID)
		rec := httptest.NewRecorder()
		handler.UpdateSettings(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, "设置已保存", env.Message)
		data, ok := env.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "dark", data["theme"])
		assert.NotEmpty(t, data["language"])
	})
}
