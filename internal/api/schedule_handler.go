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

// ScheduleHandler handles scheduled-task endpoints. Cron expressions are
// checked for shape only; evaluation lives in the external scheduler.
type ScheduleHandler struct {
	schedules store.ScheduleStore
	guard     *MemberGuard
}

// NewScheduleHandler creates a new ScheduleHandler with the given dependencies.
func NewScheduleHandler(schedules store.ScheduleStore, guard *MemberGuard) *ScheduleHandler {
	return &ScheduleHandler{
		schedules: schedules,
		guard:     guard,
	}
}

// ListByProject handles GET /schedules?projectId=...
func (h *ScheduleHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
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

	params := shared.ParsePageParams(r)
	tasks, total, err := h.schedules.ListByProject(r.Context(), projectID, params.Request())
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondList(w, r, tasks, params.Pagination(total), "")
}

// Create handles POST /schedules.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	var req CreateScheduleRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if _, err := h.guard.RequireProjectMember(r.Context(), userID, req.ProjectID, true); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	task, err := domain.NewScheduledTask(req.ProjectID, req.Name, req.CronExpr, req.TestIDs)
	if err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if err := h.schedules.Create(r.Context(), task); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondCreated(w, r, task, "定时任务已创建")
}

// Get handles GET /schedules/{id}.
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, ok := h.requireSchedule(w, r, false)
	if !ok {
		return
	}
	shared.RespondOK(w, r, task, "")
}

// Update handles PUT /schedules/{id}. Any change refreshes the naive
// next-run estimate; the active flag goes through SetActive.
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	task, ok := h.requireSchedule(w, r, true)
	if !ok {
		return
	}

	var req UpdateScheduleRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if req.Name != nil {
		task.Name = *req.Name
	}
	if req.CronExpr != nil {
		task.CronExpr = *req.CronExpr
	}
	if req.TestIDs != nil {
		task.TestIDs = req.TestIDs
	}
	task.NextRunAt = domain.EstimateNextRun(time.Now())

	if err := task.Validate(); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if err := h.schedules.Update(r.Context(), task); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	if req.Active != nil && *req.Active != task.Active {
		if err := h.schedules.SetActive(r.Context(), task.ID, *req.Active); err != nil {
			RespondMappedError(w, r, err)
			return
		}
		task.Active = *req.Active
	}

	shared.RespondOK(w, r, task, "定时任务已更新")
}

// Delete handles DELETE /schedules/{id}.
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	task, ok := h.requireSchedule(w, r, true)
	if !ok {
		return
	}

	if err := h.schedules.Delete(r.Context(), task.ID); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, nil, "定时任务已删除")
}

// requireSchedule resolves the addressed task and checks the caller's
// membership in its project's workspace.
func (h *ScheduleHandler) requireSchedule(w http.ResponseWriter, r *http.Request, mutate bool) (*domain.ScheduledTask, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return nil, false
	}
	taskID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	task, err := h.schedules.GetByID(r.Context(), taskID)
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	if _, err := h.guard.RequireProjectMember(r.Context(), userID, task.ProjectID, mutate); err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	return task, true
}
