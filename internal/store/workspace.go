package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
)

// WorkspaceMembership pairs a workspace with the role the listing user holds
// in it.
type WorkspaceMembership struct {
	Workspace *domain.Workspace
	Role      domain.MemberRole
}

// WorkspaceStore defines the interface for workspace and membership
// persistence.
type WorkspaceStore interface {
	// Create saves a workspace together with its first OWNER member in one
	// transaction, so the "every workspace has an owner" invariant can never
	// be observed broken.
	Create(ctx context.Context, ws *domain.Workspace, owner *domain.WorkspaceMember) error

	// GetByID retrieves a workspace by ID.
	// Returns ErrWorkspaceNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error)

	// ListForUser returns the workspaces the user is a member of,
	// newest-first, with the user's role in each, plus the total count.
	ListForUser(ctx context.Context, userID uuid.UUID, page PageRequest) ([]*WorkspaceMembership, int, error)

	// Update saves changes to an existing workspace.
	Update(ctx context.Context, ws *domain.Workspace) error

	// Delete hard-deletes a workspace; contained projects and their children
	// are removed by schema-level cascades.
	Delete(ctx context.Context, id uuid.UUID) error

	// GetMember returns the membership record of a user in a workspace.
	// Returns ErrMemberNotFound if the user is not a member.
	GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.WorkspaceMember, error)

	// ListMembers returns all members of a workspace ordered by join time.
	ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*domain.WorkspaceMember, error)

	// AddMember adds a user to a workspace.
	// Returns ErrMemberExists if a membership record already exists.
	AddMember(ctx context.Context, member *domain.WorkspaceMember) error

	// UpdateMemberRole changes a member's role. Demoting the last OWNER
	// fails with domain.ErrLastOwner.
	UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, role domain.MemberRole) error

	// RemoveMember removes a user from a workspace. Removing the last OWNER
	// fails with domain.ErrLastOwner.
	RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error
}
