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

// PageHandler handles the per-project UI-surface hierarchy endpoints.
type PageHandler struct {
	pages store.PageStore
	guard *MemberGuard
}

// NewPageHandler creates a new PageHandler with the given dependencies.
func NewPageHandler(pages store.PageStore, guard *MemberGuard) *PageHandler {
	return &PageHandler{
		pages: pages,
		guard: guard,
	}
}

// ListByProject handles GET /projects/{id}/pages.
func (h *PageHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}
	projectID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}
	if _, err := h.guard.RequireProjectMember(r.Context(), userID, projectID, false); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	filter := store.PageFilter{}
	if kind := r.URL.Query().Get("kind"); kind != "" {
		filter.Kind = domain.PageKind(kind)
	}
	if raw := r.URL.Query().Get("parentId"); raw != "" {
		if parentID, err := uuid.Parse(raw); err == nil {
			filter.ParentID = &parentID
		}
	}

	params := shared.ParsePageParams(r)
	pages, total, err := h.pages.ListByProject(r.Context(), projectID, filter, params.Request())
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondList(w, r, pages, params.Pagination(total), "")
}

// Create handles POST /projects/{id}/pages. A parent must exist and belong to
// the same project.
func (h *PageHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}
	projectID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}
	if _, err := h.guard.RequireProjectMember(r.Context(), userID, projectID, true); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	var req CreatePageRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if req.ParentID != nil {
		if ok := h.verifyParent(w, r, projectID, *req.ParentID); !ok {
			return
		}
	}

	page, err := domain.NewPage(projectID, req.ParentID, domain.PageKind(req.Kind), req.Name, req.Description)
	if err != nil {
		RespondValidationError(w, r, err)
		return
	}
	page.URL = req.URL

	if err := h.pages.Create(r.Context(), page); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondCreated(w, r, page, "页面已创建")
}

// Get handles GET /pages/{id}.
func (h *PageHandler) Get(w http.ResponseWriter, r *http.Request) {
	page, ok := h.requirePage(w, r, false)
	if !ok {
		return
	}
	shared.RespondOK(w, r, page, "")
}

// Update handles PUT /pages/{id}.
func (h *PageHandler) Update(w http.ResponseWriter, r *http.Request) {
	page, ok := h.requirePage(w, r, true)
	if !ok {
		return
	}

	var req UpdatePageRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if req.ParentID != nil {
		if *req.ParentID == page.ID {
			shared.RespondError(w, r, http.StatusBadRequest, shared.CodeValidation, "页面不能作为自身的父级")
			return
		}
		if ok := h.verifyParent(w, r, page.ProjectID, *req.ParentID); !ok {
			return
		}
		page.ParentID = req.ParentID
	}
	if req.Name != nil {
		page.Name = *req.Name
	}
	if req.Description != nil {
		page.Description = *req.Description
	}
	if req.URL != nil {
		page.URL = *req.URL
	}

	if err := h.pages.Update(r.Context(), page); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, page, "页面已更新")
}

// Delete handles DELETE /pages/{id}. Children are re-rooted, not removed.
func (h *PageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	page, ok := h.requirePage(w, r, true)
	if !ok {
		return
	}

	if err := h.pages.Delete(r.Context(), page.ID); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, nil, "页面已删除")
}

// verifyParent checks that the parent page exists and shares the project.
func (h *PageHandler) verifyParent(w http.ResponseWriter, r *http.Request, projectID, parentID uuid.UUID) bool {
	parent, err := h.pages.GetByID(r.Context(), parentID)
	if err != nil {
		RespondMappedError(w, r, err)
		return false
	}
	if parent.ProjectID != projectID {
		shared.RespondError(w, r, http.StatusBadRequest, shared.CodeValidation, "父级页面必须属于同一项目")
		return false
	}
	return true
}

// requirePage resolves the addressed page and checks the caller's membership
// in its project's workspace.
func (h *PageHandler) requirePage(w http.ResponseWriter, r *http.Request, mutate bool) (*domain.Page, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return nil, false
	}
	pageID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	page, err := h.pages.GetByID(r.Context(), pageID)
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	if _, err := h.guard.RequireProjectMember(r.Context(), userID, page.ProjectID, mutate); err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	return page, true
}
