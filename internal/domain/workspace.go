package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MemberRole represents a user's role within a single workspace.
type MemberRole string

// Possible workspace member roles, from most to least privileged.
const (
	MemberRoleOwner  MemberRole = "OWNER"
	MemberRoleAdmin  MemberRole = "ADMIN"
	MemberRoleMember MemberRole = "MEMBER"
	MemberRoleViewer MemberRole = "VIEWER"
)

// Workspace-specific validation errors.
var (
	ErrEmptyWorkspaceID   = errors.New("workspace ID cannot be empty")
	ErrEmptyWorkspaceName = errors.New("workspace name cannot be empty")
	ErrWorkspaceNameTooLong = errors.New("workspace name must be at most 100 characters")
	ErrInvalidMemberRole  = errors.New("invalid workspace member role")
	ErrLastOwner          = errors.New("workspace must retain at least one owner")
)

// Workspace is the top-level tenant boundary. All projects, and through them
// all tests, runs and issues, belong to exactly one workspace.
type Workspace struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WorkspaceMember links a user to a workspace with a role. A workspace always
// has at least one OWNER member; the creating user becomes the first one.
type WorkspaceMember struct {
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Role        MemberRole `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewWorkspace creates a new Workspace with the given name and description.
func NewWorkspace(name, description string) (*Workspace, error) {
	ws := &Workspace{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := ws.Validate(); err != nil {
		return nil, err
	}

	return ws, nil
}

// Validate checks if the Workspace has valid data.
func (w *Workspace) Validate() error {
	if w.ID == uuid.Nil {
		return ErrEmptyWorkspaceID
	}

	if w.Name == "" {
		return ErrEmptyWorkspaceName
	}

	if len(w.Name) > 100 {
		return ErrWorkspaceNameTooLong
	}

	return nil
}

// NewWorkspaceMember creates a membership record for the given workspace,
// user and role.
func NewWorkspaceMember(workspaceID, userID uuid.UUID, role MemberRole) (*WorkspaceMember, error) {
	m := &WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Validate checks if the WorkspaceMember has valid data.
func (m *WorkspaceMember) Validate() error {
	if m.WorkspaceID == uuid.Nil {
		return ErrEmptyWorkspaceID
	}

	if m.UserID == uuid.Nil {
		return ErrEmptyUserID
	}

	switch m.Role {
	case MemberRoleOwner, MemberRoleAdmin, MemberRoleMember, MemberRoleViewer:
		return nil
	default:
		return ErrInvalidMemberRole
	}
}

// CanMutate reports whether the member role permits mutating operations on
// workspace-scoped resources. Only OWNER and ADMIN members may mutate.
func (m *WorkspaceMember) CanMutate() bool {
	return m.Role == MemberRoleOwner || m.Role == MemberRoleAdmin
}
