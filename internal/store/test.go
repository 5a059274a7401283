package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
)

// TestFilter narrows test listings. Zero values mean "no filter".
// Archived tests are excluded unless IncludeArchived is set.
type TestFilter struct {
	ProjectID       uuid.UUID
	ParentID        *uuid.UUID
	Type            domain.TestType
	Tag             string
	Search          string // case-insensitive substring over name
	IncludeArchived bool
}

// TestStore defines the interface for test-tree persistence.
type TestStore interface {
	// Create saves a new test node.
	// Returns ErrInvalidEntity if the project or parent does not exist.
	Create(ctx context.Context, test *domain.Test) error

	// GetByID retrieves a test by ID, archived or not.
	// Returns ErrTestNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Test, error)

	// List returns a page of tests newest-first plus the total match count.
	List(ctx context.Context, filter TestFilter, page PageRequest) ([]*domain.Test, int, error)

	// Update saves changes to an existing test.
	Update(ctx context.Context, test *domain.Test) error

	// Archive soft-deletes a test by setting its archived flag.
	// Returns ErrTestNotFound if the test does not exist.
	Archive(ctx context.Context, id uuid.UUID) error

	// ListChildIDs returns the ids of the test's direct, non-archived
	// children. Used for the Get relation expansion.
	ListChildIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)

	// CountExecutions returns how many executions reference the test.
	CountExecutions(ctx context.Context, id uuid.UUID) (int, error)
}
