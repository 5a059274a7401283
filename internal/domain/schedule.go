package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Schedule-specific validation errors.
var (
	ErrEmptyScheduleID    = errors.New("scheduled task ID cannot be empty")
	ErrEmptyScheduleName  = errors.New("scheduled task name cannot be empty")
	ErrInvalidCronExpr    = errors.New("cron expression must have 5 or 6 space-separated fields")
	ErrScheduleNoTests    = errors.New("scheduled task must reference at least one test")
)

// ScheduledTask is a stored schedule definition. The cron expression is
// validated for shape only; evaluation belongs to an external scheduler
// collaborator. NextRunAt is a naive estimate refreshed on every save.
type ScheduledTask struct {
	ID        uuid.UUID   `json:"id"`
	ProjectID uuid.UUID   `json:"project_id"`
	Name      string      `json:"name"`
	CronExpr  string      `json:"cron_expr"`
	TestIDs   []uuid.UUID `json:"test_ids"`
	Active    bool        `json:"active"`
	NextRunAt time.Time   `json:"next_run_at"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewScheduledTask creates an active ScheduledTask for the given tests.
func NewScheduledTask(projectID uuid.UUID, name, cronExpr string, testIDs []uuid.UUID) (*ScheduledTask, error) {
	now := time.Now().UTC()
	task := &ScheduledTask{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      name,
		CronExpr:  strings.TrimSpace(cronExpr),
		TestIDs:   testIDs,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	task.NextRunAt = EstimateNextRun(now)

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the ScheduledTask has valid data.
func (s *ScheduledTask) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptyScheduleID
	}

	if s.ProjectID == uuid.Nil {
		return ErrEmptyProjectID
	}

	if s.Name == "" {
		return ErrEmptyScheduleName
	}

	if err := ValidateCronShape(s.CronExpr); err != nil {
		return err
	}

	if len(s.TestIDs) == 0 {
		return ErrScheduleNoTests
	}

	return nil
}

// ValidateCronShape checks that the expression has 5 or 6 non-empty
// space-separated fields. No semantic cron evaluation is performed.
func ValidateCronShape(expr string) error {
	fields := strings.Fields(expr)
	if len(fields) != 5 && len(fields) != 6 {
		return ErrInvalidCronExpr
	}
	return nil
}

// EstimateNextRun computes the placeholder next-run timestamp: the top of the
// next hour after the given time. Real cron evaluation is out of scope and
// happens in the external scheduler.
func EstimateNextRun(from time.Time) time.Time {
	return from.UTC().Truncate(time.Hour).Add(time.Hour)
}
