package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/mocks"
	"github.com/qaforge/qaforge/internal/service"
	"github.com/qaforge/qaforge/internal/store"
	"github.com/qaforge/qaforge/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTests(t *testing.T, tests *mocks.TestStore, projectID uuid.UUID, count int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		test, err := domain.NewTest(projectID, nil, "case", domain.TestTypeCase, nil, nil)
		require.NoError(t, err)
		require.NoError(t, tests.Create(context.Background(), test))
		ids = append(ids, test.ID)
	}
	return ids
}

func TestLaunch(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()

	t.Run("persists the run and enqueues one job per execution", func(t *testing.T) {
		t.Parallel()

		runs := mocks.NewRunStore()
		tests := mocks.NewTestStore()
		queue := task.NewQueue(8, nil)
		launcher := service.NewRunLauncher(runs, tests, queue, nil)

		testIDs := seedTests(t, tests, projectID, 3)
		run, executions, err := launcher.Launch(context.Background(), projectID, "nightly", "SCHEDULED", testIDs, nil)
		require.NoError(t, err)

		assert.Equal(t, domain.RunStatusPending, run.Status)
		require.Len(t, executions, 3)

		stored, err := runs.GetByID(context.Background(), run.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.TotalCount)

		queue.Close()
		jobs := 0
		for job := range queue.GetChannel() {
			assert.Equal(t, run.ID, job.RunID)
			jobs++
		}
		assert.Equal(t, 3, jobs)
	})

	t.Run("test from another project aborts the launch", func(t *testing.T) {
		t.Parallel()

		runs := mocks.NewRunStore()
		tests := mocks.NewTestStore()
		launcher := service.NewRunLauncher(runs, tests, task.NewQueue(8, nil), nil)

		foreign := seedTests(t, tests, uuid.New(), 1)
		own := seedTests(t, tests, projectID, 1)

		_, _, err := launcher.Launch(context.Background(), projectID, "mixed", "MANUAL", append(own, foreign...), nil)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)

		_, total, listErr := runs.List(context.Background(), store.RunFilter{ProjectID: projectID}, store.PageRequest{Limit: 10})
		require.NoError(t, listErr)
		assert.Zero(t, total, "no run should be persisted when validation fails")
	})

	t.Run("unknown test aborts the launch", func(t *testing.T) {
		t.Parallel()

		launcher := service.NewRunLauncher(mocks.NewRunStore(), mocks.NewTestStore(), task.NewQueue(8, nil), nil)
		_, _, err := launcher.Launch(context.Background(), projectID, "ghost", "MANUAL", []uuid.UUID{uuid.New()}, nil)
		assert.ErrorIs(t, err, store.ErrTestNotFound)
	})

	t.Run("full queue leaves executions pending without failing", func(t *testing.T) {
		t.Parallel()

		runs := mocks.NewRunStore()
		tests := mocks.NewTestStore()
		// Queue holds one job; the other two stay pending.
		launcher := service.NewRunLauncher(runs, tests, task.NewQueue(1, nil), nil)

		testIDs := seedTests(t, tests, projectID, 3)
		run, executions, err := launcher.Launch(context.Background(), projectID, "burst", "MANUAL", testIDs, nil)
		require.NoError(t, err)
		require.Len(t, executions, 3)

		stored, err := runs.Executions().ListByRun(context.Background(), run.ID)
		require.NoError(t, err)
		for _, execution := range stored {
			assert.Equal(t, domain.ExecutionStatusPending, execution.Status)
		}
	})
}
