package api

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/qaforge/qaforge/internal/api/middleware"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/service"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/qaforge/qaforge/internal/store"
)

// RunHandler handles batch-run endpoints, including the report export.
type RunHandler struct {
	runs       store.RunStore
	executions store.ExecutionStore
	launcher   *service.RunLauncher
	guard      *MemberGuard
}

// NewRunHandler creates a new RunHandler with the given dependencies.
func NewRunHandler(runs store.RunStore, executions store.ExecutionStore, launcher *service.RunLauncher, guard *MemberGuard) *RunHandler {
	return &RunHandler{
		runs:       runs,
		executions: executions,
		launcher:   launcher,
		guard:      guard,
	}
}

// runResponse augments a run with its executions and per-status counts.
type runResponse struct {
	*domain.Run
	Executions   []*domain.Execution            `json:"executions,omitempty"`
	StatusCounts map[domain.ExecutionStatus]int `json:"status_counts,omitempty"`
}

// List handles GET /runs?projectId=...
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
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

	filter := store.RunFilter{
		ProjectID: projectID,
		Status:    domain.RunStatus(r.URL.Query().Get("status")),
		Search:    r.URL.Query().Get("search"),
	}

	params := shared.ParsePageParams(r)
	runs, total, err := h.runs.List(r.Context(), filter, params.Request())
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondList(w, r, runs, params.Pagination(total), "")
}

// Create handles POST /runs: persist the run with one PENDING execution per
// test and enqueue the jobs.
func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	var req CreateRunRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if _, err := h.guard.RequireProjectMember(r.Context(), userID, req.ProjectID, true); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	run, executions, err := h.launcher.Launch(r.Context(), req.ProjectID, req.Name, req.Type, req.TestIDs, &userID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondCreated(w, r, runResponse{Run: run, Executions: executions}, "运行已创建")
}

// Get handles GET /runs/{id}, expanding executions and status counts.
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, ok := h.requireRun(w, r, false)
	if !ok {
		return
	}

	executions, err := h.executions.ListByRun(r.Context(), run.ID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}
	counts, err := h.executions.CountByStatus(r.Context(), run.ID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, runResponse{Run: run, Executions: executions, StatusCounts: counts}, "")
}

// UpdateStatus handles PATCH /runs/{id}.
func (h *RunHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	run, ok := h.requireRun(w, r, true)
	if !ok {
		return
	}

	var req UpdateRunStatusRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if err := h.runs.UpdateStatus(r.Context(), run.ID, domain.RunStatus(req.Status)); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, nil, "运行状态已更新")
}

// Delete handles DELETE /runs/{id}.
func (h *RunHandler) Delete(w http.ResponseWriter, r *http.Request) {
	run, ok := h.requireRun(w, r, true)
	if !ok {
		return
	}

	if err := h.runs.Delete(r.Context(), run.ID); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, nil, "运行已删除")
}

// Export handles GET /runs/{id}/export?format=csv|json. The report is served
// as a download, not wrapped in the envelope.
func (h *RunHandler) Export(w http.ResponseWriter, r *http.Request) {
	run, ok := h.requireRun(w, r, false)
	if !ok {
		return
	}

	executions, err := h.executions.ListByRun(r.Context(), run.ID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		filename := fmt.Sprintf("run-%s.json", run.ID)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		if err := json.NewEncoder(w).Encode(runResponse{Run: run, Executions: executions}); err != nil {
			// Headers are already written; nothing left but to log.
			shared.RespondErrorAndLog(w, r, http.StatusInternalServerError, shared.CodeGeneric, MsgInternalError, err)
		}
	case "csv":
		filename := fmt.Sprintf("run-%s.csv", run.ID)
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		writeRunCSV(w, run, executions)
	default:
		shared.RespondError(w, r, http.StatusBadRequest, shared.CodeValidation, "不支持的导出格式")
	}
}

// writeRunCSV writes the execution report rows. Encoding errors at this point
// cannot be reported to the client anymore.
func writeRunCSV(w http.ResponseWriter, run *domain.Run, executions []*domain.Execution) {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	_ = cw.Write([]string{"execution_id", "test_id", "status", "started_at", "completed_at", "logs"})
	for _, e := range executions {
		_ = cw.Write([]string{
			e.ID.String(),
			e.TestID.String(),
			string(e.Status),
			formatTimePtr(e.StartedAt),
			formatTimePtr(e.CompletedAt),
			e.Logs,
		})
	}
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// requireRun resolves the addressed run and checks the caller's membership in
// its project's workspace.
func (h *RunHandler) requireRun(w http.ResponseWriter, r *http.Request, mutate bool) (*domain.Run, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return nil, false
	}
	runID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	run, err := h.runs.GetByID(r.Context(), runID)
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	if _, err := h.guard.RequireProjectMember(r.Context(), userID, run.ProjectID, mutate); err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	return run, true
}
