package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
)

// RunFilter narrows run listings.
type RunFilter struct {
	ProjectID uuid.UUID
	Status    domain.RunStatus
	Search    string // case-insensitive substring over name
}

// RunStore defines the interface for run persistence.
type RunStore interface {
	// CreateWithExecutions saves a run and its executions atomically, so the
	// run's TotalCount always matches the number of execution rows.
	CreateWithExecutions(ctx context.Context, run *domain.Run, executions []*domain.Execution) error

	// GetByID retrieves a run by ID.
	// Returns ErrRunNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)

	// List returns a page of runs newest-first plus the total match count.
	List(ctx context.Context, filter RunFilter, page PageRequest) ([]*domain.Run, int, error)

	// UpdateStatus changes the run's status.
	// Returns ErrRunNotFound if the run does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus) error

	// Delete hard-deletes a run and cascades to its executions.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExecutionStore defines the interface for execution persistence.
type ExecutionStore interface {
	// GetByID retrieves an execution by ID.
	// Returns ErrExecutionNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error)

	// ListByRun returns the run's executions in creation order.
	ListByRun(ctx context.Context, runID uuid.UUID) ([]*domain.Execution, error)

	// UpdateResult applies a runner result to an execution in one statement,
	// so concurrent callbacks cannot interleave partial writes.
	UpdateResult(ctx context.Context, execution *domain.Execution) error

	// CountByStatus returns per-status execution counts for a run, used for
	// aggregate pass-rate reporting.
	CountByStatus(ctx context.Context, runID uuid.UUID) (map[domain.ExecutionStatus]int, error)
}
