package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/store"
)

// ErrMembershipForbidden marks a workspace access check failure. Non-members
// and members lacking a mutating role get the same error so the API never
// reveals whether a workspace exists to outsiders.
var ErrMembershipForbidden = errors.New("caller is not permitted in this workspace")

// MsgInvalidID is the user-visible message for a malformed UUID path segment.
const MsgInvalidID = "无效的 ID 格式"

// errInvalidIDParam marks a URL path id that is not a UUID.
var errInvalidIDParam = errors.New("invalid id parameter")

// parseIDParam reads a UUID path parameter. A malformed value yields
// errInvalidIDParam, which handlers surface as a validation failure.
func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errInvalidIDParam
	}
	return id, nil
}

// parseQueryID reads a required UUID query parameter.
func parseQueryID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.URL.Query().Get(name))
	if err != nil {
		return uuid.Nil, errInvalidIDParam
	}
	return id, nil
}

// MemberGuard answers workspace access questions for handlers. It resolves
// the tenant boundary of the addressed resource and checks the caller's
// membership record.
type MemberGuard struct {
	workspaces store.WorkspaceStore
	projects   store.ProjectStore
}

// NewMemberGuard creates a MemberGuard over the given stores.
func NewMemberGuard(workspaces store.WorkspaceStore, projects store.ProjectStore) *MemberGuard {
	return &MemberGuard{
		workspaces: workspaces,
		projects:   projects,
	}
}

// RequireWorkspaceMember verifies the caller belongs to the workspace, and
// when mutate is set, that the member role permits mutating operations.
// A missing membership is always ErrMembershipForbidden, never not-found.
func (g *MemberGuard) RequireWorkspaceMember(ctx context.Context, userID, workspaceID uuid.UUID, mutate bool) (*domain.WorkspaceMember, error) {
	member, err := g.workspaces.GetMember(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, store.ErrMemberNotFound) {
			return nil, ErrMembershipForbidden
		}
		return nil, err
	}
	if mutate && !member.CanMutate() {
		return nil, ErrMembershipForbidden
	}
	return member, nil
}

// RequireProjectMember resolves the project's workspace and verifies the
// caller's membership there. The project itself not existing is a plain
// not-found: project ids carry no tenant information.
func (g *MemberGuard) RequireProjectMember(ctx context.Context, userID, projectID uuid.UUID, mutate bool) (*domain.Project, error) {
	project, err := g.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := g.RequireWorkspaceMember(ctx, userID, project.WorkspaceID, mutate); err != nil {
		return nil, err
	}
	return project, nil
}
