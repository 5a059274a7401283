package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
)

// ScheduleStore defines the interface for scheduled-task persistence.
type ScheduleStore interface {
	// Create saves a new scheduled task.
	Create(ctx context.Context, task *domain.ScheduledTask) error

	// GetByID retrieves a scheduled task by ID.
	// Returns ErrScheduleNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error)

	// ListByProject returns a page of the project's scheduled tasks plus the
	// total count.
	ListByProject(ctx context.Context, projectID uuid.UUID, page PageRequest) ([]*domain.ScheduledTask, int, error)

	// Update saves changes to an existing scheduled task.
	Update(ctx context.Context, task *domain.ScheduledTask) error

	// SetActive flips the active flag in a single conditional statement.
	// Returns ErrScheduleNotFound if the task does not exist.
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	// Delete hard-deletes a scheduled task.
	Delete(ctx context.Context, id uuid.UUID) error
}
