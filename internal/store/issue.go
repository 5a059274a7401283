package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
)

// IssueFilter narrows issue listings.
type IssueFilter struct {
	ProjectID  uuid.UUID
	Status     domain.IssueStatus
	Severity   domain.IssueSeverity
	AssigneeID uuid.UUID
	Search     string // case-insensitive substring over title
}

// IssueStore defines the interface for issue persistence.
type IssueStore interface {
	// Create saves a new issue. When the issue links an execution, a partial
	// unique constraint on open issues enforces the one-open-issue-per-
	// execution invariant; violation surfaces as ErrOpenIssueExists.
	Create(ctx context.Context, issue *domain.Issue) error

	// GetByID retrieves an issue by ID.
	// Returns ErrIssueNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error)

	// List returns a page of issues newest-first plus the total match count.
	List(ctx context.Context, filter IssueFilter, page PageRequest) ([]*domain.Issue, int, error)

	// Update saves changes to an existing issue (fields other than status).
	Update(ctx context.Context, issue *domain.Issue) error

	// TransitionStatus changes the issue status only if the row still holds
	// the expected current status, keeping the read-check-write sequence
	// atomic. Returns ErrConflict when the precondition fails and the issue
	// exists, ErrIssueNotFound when it does not.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.IssueStatus) error

	// FindOpenByExecution returns the open (non-CLOSED) issue linked to the
	// execution, or ErrIssueNotFound if there is none.
	FindOpenByExecution(ctx context.Context, executionID uuid.UUID) (*domain.Issue, error)

	// Delete hard-deletes an issue.
	Delete(ctx context.Context, id uuid.UUID) error
}
