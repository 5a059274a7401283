package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRun(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()
	testIDs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	t.Run("creates pending run with one execution per test", func(t *testing.T) {
		t.Parallel()

		triggeredBy := uuid.New()
		run, executions, err := domain.NewRun(projectID, "nightly", "MANUAL", testIDs, &triggeredBy)
		require.NoError(t, err)

		assert.Equal(t, domain.RunStatusPending, run.Status)
		assert.Equal(t, len(testIDs), run.TotalCount)
		require.Len(t, executions, len(testIDs))
		for i, execution := range executions {
			assert.Equal(t, run.ID, execution.RunID)
			assert.Equal(t, testIDs[i], execution.TestID)
			assert.Equal(t, domain.ExecutionStatusPending, execution.Status)
		}
	})

	t.Run("rejects empty test list", func(t *testing.T) {
		t.Parallel()

		_, _, err := domain.NewRun(projectID, "empty", "MANUAL", nil, nil)
		assert.ErrorIs(t, err, domain.ErrRunWithoutTests)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		t.Parallel()

		_, _, err := domain.NewRun(projectID, "", "MANUAL", testIDs, nil)
		assert.ErrorIs(t, err, domain.ErrEmptyRunName)
	})
}

func TestExecutionStatusTerminal(t *testing.T) {
	t.Parallel()

	terminal := []domain.ExecutionStatus{
		domain.ExecutionStatusPassed,
		domain.ExecutionStatusFailed,
		domain.ExecutionStatusSkipped,
		domain.ExecutionStatusTimeout,
	}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}

	assert.False(t, domain.ExecutionStatusPending.Terminal())
	assert.False(t, domain.ExecutionStatusRunning.Terminal())
}
