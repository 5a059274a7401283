package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
)

// ProjectStore defines the interface for project persistence.
type ProjectStore interface {
	// Create saves a new project.
	// Returns ErrInvalidEntity if the workspace does not exist.
	Create(ctx context.Context, project *domain.Project) error

	// GetByID retrieves a project by ID.
	// Returns ErrProjectNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)

	// ListByWorkspace returns a page of the workspace's projects
	// newest-first plus the total count.
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, page PageRequest) ([]*domain.Project, int, error)

	// Update saves changes to an existing project.
	Update(ctx context.Context, project *domain.Project) error

	// Delete hard-deletes a project and, through schema cascades, its pages,
	// tests, runs and issues.
	Delete(ctx context.Context, id uuid.UUID) error
}

// PageFilter narrows page listings.
type PageFilter struct {
	Kind     domain.PageKind
	ParentID *uuid.UUID
}

// PageStore defines the interface for UI-surface hierarchy persistence.
type PageStore interface {
	// Create saves a new page node.
	// Returns ErrInvalidEntity if the parent is absent or in another project.
	Create(ctx context.Context, p *domain.Page) error

	// GetByID retrieves a page by ID.
	// Returns ErrPageNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Page, error)

	// ListByProject returns a page of the project's page nodes plus the
	// total count.
	ListByProject(ctx context.Context, projectID uuid.UUID, filter PageFilter, page PageRequest) ([]*domain.Page, int, error)

	// Update saves changes to an existing page node.
	Update(ctx context.Context, p *domain.Page) error

	// Delete hard-deletes a page node; children are re-rooted by the schema
	// (parent set NULL).
	Delete(ctx context.Context, id uuid.UUID) error
}
