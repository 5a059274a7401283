package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/api"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/mocks"
	"github.com/qaforge/qaforge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduleFixture(t *testing.T) (*api.ScheduleHandler, *mocks.ScheduleStore, *projectFixture) {
	t.Helper()
	fixture := newProjectFixture(t)
	schedules := mocks.NewScheduleStore()
	return api.NewScheduleHandler(schedules, fixture.guard), schedules, fixture
}

func createScheduleBody(projectID, testID uuid.UUID, cron string) string {
	return fmt.Sprintf(`{"projectId":%q,"name":"nightly smoke","cronExpr":%q,"testIds":[%q]}`,
		projectID, cron, testID)
}

func TestScheduleCreate(t *testing.T) {
	t.Parallel()

	handler, schedules, fixture := newScheduleFixture(t)

	create := func(callerID uuid.UUID, body string) *httptest.ResponseRecorder {
		req := withIdentity(httptest.NewRequest("POST", "/api/schedules", strings.NewReader(body)), callerID)
		rec := httptest.NewRecorder()
		handler.Create(rec, req)
		return rec
	}

	t.Run("owner creates an active schedule", func(t *testing.T) {
		rec := create(fixture.ownerID, createScheduleBody(fixture.project.ID, uuid.New(), "0 2 * * *"))
		require.Equal(t, http.StatusCreated, rec.Code)

		env := decodeEnvelope(t, rec)
		assert.Equal(t, "定时任务已创建", env.Message)

		var task domain.ScheduledTask
		raw, err := json.Marshal(env.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &task))
		assert.True(t, task.Active)
		assert.Equal(t, "0 2 * * *", task.CronExpr)

		stored, err := schedules.GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, fixture.project.ID, stored.ProjectID)
	})

	t.Run("malformed cron expression is rejected", func(t *testing.T) {
		rec := create(fixture.ownerID, createScheduleBody(fixture.project.ID, uuid.New(), "every day at noon"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, shared.CodeValidation, decodeEnvelope(t, rec).Code)
	})

	t.Run("viewer cannot create", func(t *testing.T) {
		viewerID := uuid.New()
		viewer, err := domain.NewWorkspaceMember(fixture.project.WorkspaceID, viewerID, domain.MemberRoleViewer)
		require.NoError(t, err)
		require.NoError(t, fixture.workspaces.AddMember(context.Background(), viewer))

		rec := create(viewerID, createScheduleBody(fixture.project.ID, uuid.New(), "0 2 * * *"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, api.MsgForbidden, decodeEnvelope(t, rec).Message)
	})
}

func TestScheduleUpdate(t *testing.T) {
	t.Parallel()

	handler, schedules, fixture := newScheduleFixture(t)

	seeded, err := domain.NewScheduledTask(fixture.project.ID, "weekly regression", "0 6 * * 1", []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	require.NoError(t, schedules.Create(context.Background(), seeded))

	update := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("PUT", "/api/schedules/"+seeded.ID.String(), strings.NewReader(body))
		req = withURLParams(withIdentity(req, fixture.ownerID), map[string]string{"id": seeded.ID.String()})
		rec := httptest.NewRecorder()
		handler.Update(rec, req)
		return rec
	}

	t.Run("rename and pause", func(t *testing.T) {
		rec := update(`{"name":"weekly full pass","active":false}`)
		require.Equal(t, http.StatusOK, rec.Code)

		stored, err := schedules.GetByID(context.Background(), seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, "weekly full pass", stored.Name)
		assert.False(t, stored.Active)
	})

	t.Run("invalid cron leaves the task untouched", func(t *testing.T) {
		rec := update(`{"cronExpr":"* *"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		stored, err := schedules.GetByID(context.Background(), seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, "0 6 * * 1", stored.CronExpr)
	})
}

func TestScheduleDelete(t *testing.T) {
	t.Parallel()

	handler, schedules, fixture := newScheduleFixture(t)

	seeded, err := domain.NewScheduledTask(fixture.project.ID, "doomed", "0 0 * * *", []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	require.NoError(t, schedules.Create(context.Background(), seeded))

	req := httptest.NewRequest("DELETE", "/api/schedules/"+seeded.ID.String(), nil)
	req = withURLParams(withIdentity(req, fixture.ownerID), map[string]string{"id": seeded.ID.String()})
	rec := httptest.NewRecorder()
	handler.Delete(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = schedules.GetByID(context.Background(), seeded.ID)
	assert.ErrorIs(t, err, store.ErrScheduleNotFound)
}
