package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduledTask(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()
	testIDs := []uuid.UUID{uuid.New()}

	t.Run("creates active task", func(t *testing.T) {
		t.Parallel()

		task, err := domain.NewScheduledTask(projectID, "nightly regression", "0 2 * * *", testIDs)
		require.NoError(t, err)

		assert.True(t, task.Active)
		assert.Equal(t, "0 2 * * *", task.CronExpr)
		assert.False(t, task.NextRunAt.IsZero())
	})

	t.Run("trims cron whitespace", func(t *testing.T) {
		t.Parallel()

		task, err := domain.NewScheduledTask(projectID, "weekly", "  0 6 * * 1  ", testIDs)
		require.NoError(t, err)
		assert.Equal(t, "0 6 * * 1", task.CronExpr)
	})

	t.Run("rejects empty test list", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewScheduledTask(projectID, "empty", "0 2 * * *", nil)
		assert.ErrorIs(t, err, domain.ErrScheduleNoTests)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewScheduledTask(projectID, "", "0 2 * * *", testIDs)
		assert.ErrorIs(t, err, domain.ErrEmptyScheduleName)
	})
}

func TestValidateCronShape(t *testing.T) {
	t.Parallel()

	valid := []string{
		"0 2 * * *",
		"*/5 * * * *",
		"0 0 2 * * *", // seconds field
	}
	for _, expr := range valid {
		assert.NoError(t, domain.ValidateCronShape(expr), "expr %q", expr)
	}

	invalid := []string{
		"",
		"0 2 * *",
		"0 0 0 2 * * *",
		"   ",
	}
	for _, expr := range invalid {
		assert.ErrorIs(t, domain.ValidateCronShape(expr), domain.ErrInvalidCronExpr, "expr %q", expr)
	}
}

func TestEstimateNextRun(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 3, 10, 14, 37, 12, 0, time.UTC)
	next := domain.EstimateNextRun(from)
	assert.Equal(t, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC), next)

	// A time exactly on the hour still advances to the next hour.
	onTheHour := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC), domain.EstimateNextRun(onTheHour))
}
