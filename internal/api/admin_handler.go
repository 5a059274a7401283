package api

import (
	"net/http"
	"time"

	"github.com/qaforge/qaforge/internal/api/middleware"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/qaforge/qaforge/internal/store"
)

// AdminHandler handles the admin-only user management and global
// configuration endpoints. Routes using it sit behind the admin middleware;
// the handlers themselves only add the self-target guard.
type AdminHandler struct {
	users  store.UserStore
	config store.SystemConfigStore
	hasher auth.PasswordHasher
}

// NewAdminHandler creates a new AdminHandler with the given dependencies.
func NewAdminHandler(users store.UserStore, config store.SystemConfigStore, hasher auth.PasswordHasher) *AdminHandler {
	return &AdminHandler{
		users:  users,
		config: config,
		hasher: hasher,
	}
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter := store.UserFilter{
		Role:   domain.UserRole(r.URL.Query().Get("role")),
		Search: r.URL.Query().Get("search"),
	}

	params := shared.ParsePageParams(r)
	users, total, err := h.users.List(r.Context(), filter, params.Request())
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, toUserResponse(user))
	}

	shared.RespondList(w, r, responses, params.Pagination(total), "")
}

// CreateUser handles POST /admin/users. Unlike self-registration, the role is
// caller-chosen.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req AdminCreateUserRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	user, err := domain.NewUser(req.Email, req.DisplayName, req.Password)
	if err != nil {
		RespondValidationError(w, r, err)
		return
	}
	user.Role = domain.UserRole(req.Role)

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

	shared.RespondCreated(w, r, toUserResponse(user), "用户已创建")
}

// GetUser handles GET /admin/users/{id}.
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, toUserResponse(user), "")
}

// UpdateUser handles PUT /admin/users/{id}. An admin cannot change their own
// role or active flag; demoting or deactivating yourself locks you out of the
// very endpoint you would need to undo it.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	targetID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	var req AdminUpdateUserRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	// Code 1004 marks the self-target refusal so clients can distinguish it
	// from field validation failures.
	if targetID == callerID && (req.Role != nil || req.Active != nil) {
		shared.RespondError(w, r, http.StatusBadRequest, shared.CodeUnauthorized, MsgSelfTarget)
		return
	}

	user, err := h.users.GetByID(r.Context(), targetID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Role != nil {
		user.Role = domain.UserRole(*req.Role)
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.Password != nil {
		hashed, err := h.hasher.Hash(*req.Password)
		if err != nil {
			RespondMappedError(w, r, err)
			return
		}
		user.HashedPassword = hashed
		user.Password = ""
	}

	if err := h.users.Update(r.Context(), user); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, toUserResponse(user), "用户已更新")
}

// DeleteUser handles DELETE /admin/users/{id}. Self-deletion is refused.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	targetID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	if targetID == callerID {
		shared.RespondError(w, r, http.StatusBadRequest, shared.CodeUnauthorized, MsgSelfTarget)
		return
	}

	if err := h.users.Delete(r.Context(), targetID); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, nil, "用户已删除")
}

// ListConfig handles GET /admin/config.
func (h *AdminHandler) ListConfig(w http.ResponseWriter, r *http.Request) {
	configs, err := h.config.List(r.Context())
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, configs, "")
}

// UpsertConfig handles PUT /admin/config: create or replace one key.
func (h *AdminHandler) UpsertConfig(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	var req UpsertConfigRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	cfg := &domain.SystemConfig{
		Key:       req.Key,
		Value:     req.Value,
		UpdatedBy: callerID,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.config.Upsert(r.Context(), cfg); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, cfg, "配置已保存")
}
