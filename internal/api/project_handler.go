package api

import (
	"net/http"

	"github.com/qaforge/qaforge/internal/api/middleware"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/qaforge/qaforge/internal/store"
)

// ProjectHandler handles project endpoints. Projects live under a workspace;
// every operation passes the membership guard first.
type ProjectHandler struct {
	projects store.ProjectStore
	guard    *MemberGuard
}

// NewProjectHandler creates a new ProjectHandler with the given dependencies.
func NewProjectHandler(projects store.ProjectStore, guard *MemberGuard) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		guard:    guard,
	}
}

// ListByWorkspace handles GET /workspaces/{id}/projects.
func (h *ProjectHandler) ListByWorkspace(w http.ResponseWriter, r *http.Request) {
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
	if _, err := h.guard.RequireWorkspaceMember(r.Context(), userID, workspaceID, false); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	params := shared.ParsePageParams(r)
	projects, total, err := h.projects.ListByWorkspace(r.Context(), workspaceID, params.Request())
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondList(w, r, projects, params.Pagination(total), "")
}

// Create handles POST /workspaces/{id}/projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
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
	if _, err := h.guard.RequireWorkspaceMember(r.Context(), userID, workspaceID, true); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	var req CreateProjectRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	project, err := domain.NewProject(workspaceID, req.Name, req.Description)
	if err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if err := h.projects.Create(r.Context(), project); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondCreated(w, r, project, "项目已创建")
}

// Get handles GET /projects/{id}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, ok := h.requireProject(w, r, false)
	if !ok {
		return
	}
	shared.RespondOK(w, r, project, "")
}

// Update handles PUT /projects/{id}.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	project, ok := h.requireProject(w, r, true)
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}

	if err := h.projects.Update(r.Context(), project); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, project, "项目已更新")
}

// Delete handles DELETE /projects/{id}. Pages, tests, runs and issues go with
// it via schema cascades.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	project, ok := h.requireProject(w, r, true)
	if !ok {
		return
	}

	if err := h.projects.Delete(r.Context(), project.ID); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, nil, "项目已删除")
}

// requireProject resolves the caller and the addressed project through the
// membership guard, writing the error response itself on failure.
func (h *ProjectHandler) requireProject(w http.ResponseWriter, r *http.Request, mutate bool) (*domain.Project, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return nil, false
	}
	projectID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	project, err := h.guard.RequireProjectMember(r.Context(), userID, projectID, mutate)
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	return project, true
}
