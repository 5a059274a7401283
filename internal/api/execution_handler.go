package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/qaforge/qaforge/internal/api/middleware"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/qaforge/qaforge/internal/store"
)

// ExecutionHandler handles single-execution endpoints: the runner result
// callback and the idempotent issue auto-create.
type ExecutionHandler struct {
	executions store.ExecutionStore
	runs       store.RunStore
	issues     store.IssueStore
	guard      *MemberGuard
}

// NewExecutionHandler creates a new ExecutionHandler with the given
// dependencies.
func NewExecutionHandler(executions store.ExecutionStore, runs store.RunStore, issues store.IssueStore, guard *MemberGuard) *ExecutionHandler {
	return &ExecutionHandler{
		executions: executions,
		runs:       runs,
		issues:     issues,
		guard:      guard,
	}
}

// Get handles GET /executions/{id}.
func (h *ExecutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	execution, _, ok := h.requireExecution(w, r, false)
	if !ok {
		return
	}
	shared.RespondOK(w, r, execution, "")
}

// Update handles PUT /executions/{id}: the runner posts its result here. The
// whole result is applied in one store statement. Moving into a RUNNING or
// terminal state stamps the corresponding timestamp if the runner did not.
func (h *ExecutionHandler) Update(w http.ResponseWriter, r *http.Request) {
	execution, _, ok := h.requireExecution(w, r, true)
	if !ok {
		return
	}

	var req UpdateExecutionRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	now := time.Now().UTC()
	status := domain.ExecutionStatus(req.Status)
	execution.Status = status
	if req.Logs != "" {
		execution.Logs = req.Logs
	}
	if req.Screenshot != "" {
		execution.Screenshot = req.Screenshot
	}
	if req.ErrorDetail != nil {
		execution.ErrorDetail = req.ErrorDetail
	}
	if status == domain.ExecutionStatusRunning && execution.StartedAt == nil {
		execution.StartedAt = &now
	}
	if status.Terminal() {
		if execution.StartedAt == nil {
			execution.StartedAt = &now
		}
		if execution.CompletedAt == nil {
			execution.CompletedAt = &now
		}
	}

	if err := h.executions.UpdateResult(r.Context(), execution); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, execution, "执行结果已更新")
}

// CreateIssue handles POST /executions/{id}/issues: auto-create an issue from
// an execution, idempotent per execution. A second attempt while an open
// issue exists returns 409 with the existing issue.
func (h *ExecutionHandler) CreateIssue(w http.ResponseWriter, r *http.Request) {
	execution, run, ok := h.requireExecution(w, r, true)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(r)

	var req CreateIssueFromExecutionRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	title := req.Title
	if title == "" {
		title = fmt.Sprintf("执行失败: %s / %s", run.Name, execution.TestID)
	}
	severity := domain.IssueSeverity(req.Severity)
	if req.Severity == "" {
		severity = domain.IssueSeverityMedium
	}

	issue, err := domain.NewIssue(run.ProjectID, userID, title, req.Description, severity)
	if err != nil {
		RespondValidationError(w, r, err)
		return
	}
	issue.TestID = &execution.TestID
	issue.ExecutionID = &execution.ID

	if err := h.issues.Create(r.Context(), issue); err != nil {
		if errors.Is(err, store.ErrOpenIssueExists) {
			existing, findErr := h.issues.FindOpenByExecution(r.Context(), execution.ID)
			if findErr == nil {
				shared.RespondConflict(w, r, shared.CodeValidation, existing, MsgOpenIssueExists)
				return
			}
		}
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondCreated(w, r, issue, "缺陷已创建")
}

// requireExecution resolves the addressed execution and its run, checking the
// caller's membership in the run's project.
func (h *ExecutionHandler) requireExecution(w http.ResponseWriter, r *http.Request, mutate bool) (*domain.Execution, *domain.Run, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return nil, nil, false
	}
	executionID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, nil, false
	}
	execution, err := h.executions.GetByID(r.Context(), executionID)
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, nil, false
	}
	run, err := h.runs.GetByID(r.Context(), execution.RunID)
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, nil, false
	}
	if _, err := h.guard.RequireProjectMember(r.Context(), userID, run.ProjectID, mutate); err != nil {
		RespondMappedError(w, r, err)
		return nil, nil, false
	}
	return execution, run, true
}
