package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/api/middleware"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/qaforge/qaforge/internal/store"
)

// WorkspaceHandler handles workspace and membership endpoints.
type WorkspaceHandler struct {
	workspaces store.WorkspaceStore
	guard      *MemberGuard
}

// NewWorkspaceHandler creates a new WorkspaceHandler with the given
// dependencies.
func NewWorkspaceHandler(workspaces store.WorkspaceStore, guard *MemberGuard) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaces: workspaces,
		guard:      guard,
	}
}

// workspaceResponse pairs a workspace with the caller's role in it.
type workspaceResponse struct {
	*domain.Workspace
	MyRole domain.MemberRole `json:"my_role,omitempty"`
}

// List handles GET /workspaces: the caller's workspaces only.
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	params := shared.ParsePageParams(r)
	memberships, total, err := h.workspaces.ListForUser(r.Context(), userID, params.Request())
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	items := make([]workspaceResponse, 0, len(memberships))
	for _, m := range memberships {
		items = append(items, workspaceResponse{Workspace: m.Workspace, MyRole: m.Role})
	}

	shared.RespondList(w, r, items, params.Pagination(total), "")
}

// Create handles POST /workspaces. The creator becomes the first OWNER in the
// same transaction.
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	var req CreateWorkspaceRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	ws, err := domain.NewWorkspace(req.Name, req.Description)
	if err != nil {
		RespondValidationError(w, r, err)
		return
	}
	owner, err := domain.NewWorkspaceMember(ws.ID, userID, domain.MemberRoleOwner)
	if err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if err := h.workspaces.Create(r.Context(), ws, owner); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondCreated(w, r, workspaceResponse{Workspace: ws, MyRole: domain.MemberRoleOwner}, "工作区已创建")
}

// Get handles GET /workspaces/{id}.
func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, member, ok := h.requireMember(w, r, false)
	if !ok {
		return
	}
	_ = userID

	ws, err := h.workspaces.GetByID(r.Context(), workspaceID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, workspaceResponse{Workspace: ws, MyRole: member.Role}, "")
}

// Update handles PUT /workspaces/{id}.
func (h *WorkspaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, workspaceID, _, ok := h.requireMember(w, r, true)
	if !ok {
		return
	}

	var req UpdateWorkspaceRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	ws, err := h.workspaces.GetByID(r.Context(), workspaceID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	if req.Name != nil {
		ws.Name = *req.Name
	}
	if req.Description != nil {
		ws.Description = *req.Description
	}

	if err := h.workspaces.Update(r.Context(), ws); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, ws, "工作区已更新")
}

// Delete handles DELETE /workspaces/{id}. Only OWNER members may delete the
// whole workspace.
func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, workspaceID, member, ok := h.requireMember(w, r, true)
	if !ok {
		return
	}
	if member.Role != domain.MemberRoleOwner {
		RespondForbidden(w, r)
		return
	}

	if err := h.workspaces.Delete(r.Context(), workspaceID); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, nil, "工作区已删除")
}

// ListMembers handles GET /workspaces/{id}/members.
func (h *WorkspaceHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	_, workspaceID, _, ok := h.requireMember(w, r, false)
	if !ok {
		return
	}

	members, err := h.workspaces.ListMembers(r.Context(), workspaceID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, members, "")
}

// AddMember handles POST /workspaces/{id}/members.
func (h *WorkspaceHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	_, workspaceID, _, ok := h.requireMember(w, r, true)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	member, err := domain.NewWorkspaceMember(workspaceID, req.UserID, domain.MemberRole(req.Role))
	if err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if err := h.workspaces.AddMember(r.Context(), member); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondCreated(w, r, member, "成员已添加")
}

// UpdateMemberRole handles PUT /workspaces/{id}/members/{userId}.
func (h *WorkspaceHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	_, workspaceID, _, ok := h.requireMember(w, r, true)
	if !ok {
		return
	}

	targetID, err := parseIDParam(r, "userId")
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	var req UpdateMemberRoleRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if err := h.workspaces.UpdateMemberRole(r.Context(), workspaceID, targetID, domain.MemberRole(req.Role)); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, nil, "成员角色已更新")
}

// RemoveMember handles DELETE /workspaces/{id}/members/{userId}. A member may
// always remove themselves; removing others requires a mutating role. The
// last OWNER can never leave.
func (h *WorkspaceHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}
	workspaceID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}
	targetID, err := parseIDParam(r, "userId")
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	mutate := targetID != userID
	if _, err := h.guard.RequireWorkspaceMember(r.Context(), userID, workspaceID, mutate); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	if err := h.workspaces.RemoveMember(r.Context(), workspaceID, targetID); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, nil, "成员已移除")
}

// requireMember resolves the caller, the {id} path parameter and the caller's
// membership, writing the error response itself on failure.
func (h *WorkspaceHandler) requireMember(w http.ResponseWriter, r *http.Request, mutate bool) (userID, workspaceID uuid.UUID, member *domain.WorkspaceMember, ok bool) {
	userID, found := middleware.GetUserID(r)
	if !found {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return uuid.Nil, uuid.Nil, nil, false
	}

	workspaceID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return uuid.Nil, uuid.Nil, nil, false
	}

	member, err = h.guard.RequireWorkspaceMember(r.Context(), userID, workspaceID, mutate)
	if err != nil {
		RespondMappedError(w, r, err)
		return uuid.Nil, uuid.Nil, nil, false
	}

	return userID, workspaceID, member, true
}
