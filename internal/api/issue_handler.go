package api

import (
	"errors"
	"net/http"

	"github.com/qaforge/qaforge/internal/api/middleware"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/qaforge/qaforge/internal/store"
)

// IssueHandler handles issue endpoints, including the guarded status
// transition.
type IssueHandler struct {
	issues store.IssueStore
	guard  *MemberGuard
}

// NewIssueHandler creates a new IssueHandler with the given dependencies.
func NewIssueHandler(issues store.IssueStore, guard *MemberGuard) *IssueHandler {
	return &IssueHandler{
		issues: issues,
		guard:  guard,
	}
}

// List handles GET /issues?projectId=...
func (h *IssueHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	projectID, err := parseQueryID(r, "projectId")
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}
	if _, err := h.guard.RequireProjectMember(r.Context(), userID, projectID, false); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	filter := store.IssueFilter{
		ProjectID: projectID,
		Status:    domain.IssueStatus(r.URL.Query().Get("status")),
		Severity:  domain.IssueSeverity(r.URL.Query().Get("severity")),
		Search:    r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("assigneeId"); raw != "" {
		if assigneeID, err := parseQueryID(r, "assigneeId"); err == nil {
			filter.AssigneeID = assigneeID
		}
	}

	params := shared.ParsePageParams(r)
	issues, total, err := h.issues.List(r.Context(), filter, params.Request())
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondList(w, r, issues, params.Pagination(total), "")
}

// Create handles POST /issues.
func (h *IssueHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	var req CreateIssueRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if _, err := h.guard.RequireProjectMember(r.Context(), userID, req.ProjectID, true); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	issue, err := domain.NewIssue(req.ProjectID, userID, req.Title, req.Description, domain.IssueSeverity(req.Severity))
	if err != nil {
		RespondValidationError(w, r, err)
		return
	}
	issue.AssigneeID = req.AssigneeID
	issue.TestID = req.TestID
	issue.ExecutionID = req.ExecutionID

	if err := h.issues.Create(r.Context(), issue); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondCreated(w, r, issue, "缺陷已创建")
}

// Get handles GET /issues/{id}.
func (h *IssueHandler) Get(w http.ResponseWriter, r *http.Request) {
	issue, ok := h.requireIssue(w, r, false)
	if !ok {
		return
	}
	shared.RespondOK(w, r, issue, "")
}

// Update handles PUT /issues/{id}: fields other than status.
func (h *IssueHandler) Update(w http.ResponseWriter, r *http.Request) {
	issue, ok := h.requireIssue(w, r, true)
	if !ok {
		return
	}

	var req UpdateIssueRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if req.Title != nil {
		issue.Title = *req.Title
	}
	if req.Description != nil {
		issue.Description = *req.Description
	}
	if req.Severity != nil {
		issue.Severity = domain.IssueSeverity(*req.Severity)
	}
	if req.AssigneeID != nil {
		issue.AssigneeID = req.AssigneeID
	}

	if err := h.issues.Update(r.Context(), issue); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, issue, "缺陷已更新")
}

// UpdateStatus handles PATCH /issues/{id}/status. The transition table is
// consulted first; the store then applies the change conditionally so a
// concurrent transition cannot slip through between check and write.
func (h *IssueHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	issue, ok := h.requireIssue(w, r, true)
	if !ok {
		return
	}

	var req UpdateIssueStatusRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	requested := domain.IssueStatus(req.Status)
	if err := domain.CanTransitionIssue(issue.Status, requested); err != nil {
		shared.RespondError(w, r, http.StatusBadRequest, shared.CodeValidation, err.Error())
		return
	}

	if issue.Status == requested {
		// Permitted no-op.
		shared.RespondOK(w, r, issue, "")
		return
	}

	if err := h.issues.TransitionStatus(r.Context(), issue.ID, issue.Status, requested); err != nil {
		if errors.Is(err, store.ErrConflict) {
			shared.RespondError(w, r, http.StatusConflict, shared.CodeValidation, MsgConflict)
			return
		}
		RespondMappedError(w, r, err)
		return
	}

	issue.Status = requested
	shared.RespondOK(w, r, issue, "缺陷状态已更新")
}

// Delete handles DELETE /issues/{id}.
func (h *IssueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	issue, ok := h.requireIssue(w, r, true)
	if !ok {
		return
	}

	if err := h.issues.Delete(r.Context(), issue.ID); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, nil, "缺陷已删除")
}

// requireIssue resolves the addressed issue and checks the caller's
// membership in its project's workspace.
func (h *IssueHandler) requireIssue(w http.ResponseWriter, r *http.Request, mutate bool) (*domain.Issue, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return nil, false
	}
	issueID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	issue, err := h.issues.GetByID(r.Context(), issueID)
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	if _, err := h.guard.RequireProjectMember(r.Context(), userID, issue.ProjectID, mutate); err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	return issue, true
}
