package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/qaforge/qaforge/internal/api/middleware"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/qaforge/qaforge/internal/store"
)

// AuthHandler handles registration, login, logout, the current-user endpoint
// and per-user settings.
type AuthHandler struct {
	users     store.UserStore
	settings  store.UserSettingsStore
	sessions  auth.SessionService
	hasher    auth.PasswordHasher
	cookieTTL time.Duration
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	users store.UserStore,
	settings store.UserSettingsStore,
	sessions auth.SessionService,
	hasher auth.PasswordHasher,
	cookieTTL time.Duration,
) *AuthHandler {
	return &AuthHandler{
		users:     users,
		settings:  settings,
		sessions:  sessions,
		hasher:    hasher,
		cookieTTL: cookieTTL,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	user, err := domain.NewUser(req.Email, req.DisplayName, req.Password)
	if err != nil {
		RespondValidationError(w, r, err)
		return
	}

	hashed, err := h.hasher.Hash(req.Password)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}
	user.HashedPassword = hashed
	user.Password = ""

	if err := h.users.Create(r.Context(), user); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	h.startSession(w, r, user, http.StatusCreated, "注册成功")
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Same response as a wrong password so login probing learns nothing.
			RespondMappedError(w, r, auth.ErrBadCredentials)
			return
		}
		RespondMappedError(w, r, err)
		return
	}

	if !user.Active {
		RespondMappedError(w, r, auth.ErrBadCredentials)
		return
	}

	if err := h.hasher.Compare(user.HashedPassword, req.Password); err != nil {
		RespondMappedError(w, r, auth.ErrBadCredentials)
		return
	}

	h.startSession(w, r, user, http.StatusOK, "登录成功")
}

// Logout handles POST /auth/logout. The session cookie is expired; bearer
// clients simply discard the token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	shared.RespondOK(w, r, nil, "已退出登录")
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, toUserResponse(user), "")
}

// GetSettings handles GET /auth/settings.
func (h *AuthHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	settings, err := h.settings.Get(r.Context(), userID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, settings, "")
}

// UpdateSettings handles PUT /auth/settings.
func (h *AuthHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	var req UpdateSettingsRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	settings, err := h.settings.Get(r.Context(), userID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	if req.Theme != nil {
		settings.Theme = *req.Theme
	}
	if req.Language != nil {
		settings.Language = *req.Language
	}
	if req.NotificationsOn != nil {
		settings.NotificationsOn = *req.NotificationsOn
	}
	if req.DefaultWorkspaceID != nil {
		settings.DefaultWorkspaceID = *req.DefaultWorkspaceID
	}

	if err := h.settings.Upsert(r.Context(), settings); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, settings, "设置已保存")
}

// startSession issues a session token, sets the cookie and writes the auth
// response envelope. The token is also returned in the body for API clients
// that prefer the bearer header.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *domain.User, status int, message string) {
	token, err := h.sessions.IssueToken(r.Context(), user.ID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	data := map[string]interface{}{
		"user":  toUserResponse(user),
		"token": token,
	}
	if status == http.StatusCreated {
		shared.RespondCreated(w, r, data, message)
		return
	}
	shared.RespondOK(w, r, data, message)
}

func toUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
		Active:      user.Active,
	}
}
