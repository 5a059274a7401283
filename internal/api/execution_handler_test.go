package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/api"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// projectFixture wires the tenant chain a project-scoped handler needs:
// a workspace with one OWNER member, and a project inside it.
type projectFixture struct {
	workspaces *mocks.WorkspaceStore
	projects   *mocks.ProjectStore
	guard      *api.MemberGuard
	ownerID    uuid.UUID
	project    *domain.Project
}

func newProjectFixture(t *testing.T) *projectFixture {
	t.Helper()

	workspaces := mocks.NewWorkspaceStore()
	projects := mocks.NewProjectStore()
	ownerID := uuid.New()

	ws, err := domain.NewWorkspace("fixture space", "")
	require.NoError(t, err)
	owner, err := domain.NewWorkspaceMember(ws.ID, ownerID, domain.MemberRoleOwner)
	require.NoError(t, err)
	require.NoError(t, workspaces.Create(context.Background(), ws, owner))

	project, err := domain.NewProject(ws.ID, "web shop", "")
	require.NoError(t, err)
	require.NoError(t, projects.Create(context.Background(), project))

	return &projectFixture{
		workspaces: workspaces,
		projects:   projects,
		guard:      api.NewMemberGuard(workspaces, projects),
		ownerID:    ownerID,
		project:    project,
	}
}

// seedRun persists a run with executions for the fixture project.
func (f *projectFixture) seedRun(t *testing.T, runs *mocks.RunStore, testCount int) (*domain.Run, []*domain.Execution) {
	t.Helper()

	testIDs := make([]uuid.UUID, testCount)
	for i := range testIDs {
		testIDs[i] = uuid.New()
	}
	run, executions, err := domain.NewRun(f.project.ID, "fixture run", "MANUAL", testIDs, &f.ownerID)
	require.NoError(t, err)
	require.NoError(t, runs.CreateWithExecutions(context.Background(), run, executions))
	return run, executions
}

func TestExecutionUpdate(t *testing.T) {
	t.Parallel()

	fixture := newProjectFixture(t)
	runs := mocks.NewRunStore()
	issues := mocks.NewIssueStore()
	handler := api.NewExecutionHandler(runs.Executions(), runs, issues, fixture.guard)

	_, executions := fixture.seedRun(t, runs, 1)
	execution := executions[0]

	update := func(callerID uuid.UUID, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("PUT", "/api/executions/"+execution.ID.String(), strings.NewReader(body))
		req = withURLParams(withIdentity(req, callerID), map[string]string{"id": execution.ID.String()})
		rec := httptest.NewRecorder()
		handler.Update(rec, req)
		return rec
	}

	t.Run("terminal result stamps timestamps", func(t *testing.T) {
		rec := update(fixture.ownerID, `{"status":"FAILED","logs":"assertion failed"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		stored, err := runs.Executions().GetByID(context.Background(), execution.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ExecutionStatusFailed, stored.Status)
		assert.Equal(t, "assertion failed", stored.Logs)
		require.NotNil(t, stored.StartedAt)
		require.NotNil(t, stored.CompletedAt)
	})

	t.Run("unknown status fails validation", func(t *testing.T) {
		rec := update(fixture.ownerID, `{"status":"EXPLODED"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non-member cannot report results", func(t *testing.T) {
		rec := update(uuid.New(), `{"status":"PASSED"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestExecutionCreateIssue(t *testing.T) {
	t.Parallel()

	fixture := newProjectFixture(t)
	runs := mocks.NewRunStore()
	issues := mocks.NewIssueStore()
	handler := api.NewExecutionHandler(runs.Executions(), runs, issues, fixture.guard)

	run, executions := fixture.seedRun(t, runs, 1)
	execution := executions[0]

	createIssue := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/executions/"+execution.ID.String()+"/issues", strings.NewReader(body))
		req = withURLParams(withIdentity(req, fixture.ownerID), map[string]string{"id": execution.ID.String()})
		rec := httptest.NewRecorder()
		handler.CreateIssue(rec, req)
		return rec
	}

	t.Run("defaults are derived from the execution", func(t *testing.T) {
		rec := createIssue(`{}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		env := decodeEnvelope(t, rec)
		data, ok := env.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, string(domain.IssueSeverityMedium), data["severity"])
		assert.Contains(t, data["title"], run.Name)
		assert.Equal(t, execution.ID.String(), data["execution_id"])
	})

	t.Run("second attempt returns the existing open issue", func(t *testing.T) {
		rec := createIssue(`{"title":"second attempt"}`)
		require.Equal(t, http.StatusConflict, rec.Code)

		env := decodeEnvelope(t, rec)
		assert.Equal(t, shared.CodeValidation, env.Code)
		assert.Equal(t, api.MsgOpenIssueExists, env.Message)

		// The conflict envelope carries the issue created first, not null.
		data, ok := env.Data.(map[string]interface{})
		require.True(t, ok)
		assert.NotEqual(t, "second attempt", data["title"])
	})

	t.Run("closing the issue allows a fresh one", func(t *testing.T) {
		existing, err := issues.FindOpenByExecution(context.Background(), execution.ID)
		require.NoError(t, err)
		require.NoError(t, issues.TransitionStatus(context.Background(), existing.ID, existing.Status, domain.IssueStatusClosed))

		rec := createIssue(`{"title":"regression reopened","severity":"HIGH"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		data, ok := decodeEnvelope(t, rec).Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "regression reopened", data["title"])
		assert.Equal(t, string(domain.IssueSeverityHigh), data["severity"])
	})
}
