package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/store"
)

type memberKey struct {
	workspaceID uuid.UUID
	userID      uuid.UUID
}

// WorkspaceStore is an in-memory store.WorkspaceStore.
type WorkspaceStore struct {
	mu         sync.Mutex
	workspaces map[uuid.UUID]*domain.Workspace
	members    map[memberKey]*domain.WorkspaceMember
}

var _ store.WorkspaceStore = (*WorkspaceStore)(nil)

// NewWorkspaceStore creates an empty in-memory workspace store.
func NewWorkspaceStore() *WorkspaceStore {
	return &WorkspaceStore{
		workspaces: make(map[uuid.UUID]*domain.Workspace),
		members:    make(map[memberKey]*domain.WorkspaceMember),
	}
}

// Create implements store.WorkspaceStore.Create.
func (s *WorkspaceStore) Create(ctx context.Context, ws *domain.Workspace, owner *domain.WorkspaceMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wsCopy := *ws
	ownerCopy := *owner
	s.workspaces[ws.ID] = &wsCopy
	s.members[memberKey{owner.WorkspaceID, owner.UserID}] = &ownerCopy
	return nil
}

// GetByID implements store.WorkspaceStore.GetByID.
func (s *WorkspaceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workspaces[id]
	if !ok {
		return nil, store.ErrWorkspaceNotFound
	}
	copied := *ws
	return &copied, nil
}

// ListForUser implements store.WorkspaceStore.ListForUser.
func (s *WorkspaceStore) ListForUser(ctx context.Context, userID uuid.UUID, page store.PageRequest) ([]*store.WorkspaceMembership, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var memberships []*store.WorkspaceMembership
	for key, member := range s.members {
		if key.userID != userID {
			continue
		}
		ws, ok := s.workspaces[key.workspaceID]
		if !ok {
			continue
		}
		wsCopy := *ws
		memberships = append(memberships, &store.WorkspaceMembership{
			Workspace: &wsCopy,
			Role:      member.Role,
		})
	}

	sort.Slice(memberships, func(i, j int) bool {
		return memberships[i].Workspace.CreatedAt.After(memberships[j].Workspace.CreatedAt)
	})

	total := len(memberships)
	return paginate(memberships, page), total, nil
}

// Update implements store.WorkspaceStore.Update.
func (s *WorkspaceStore) Update(ctx context.Context, ws *domain.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workspaces[ws.ID]; !ok {
		return store.ErrWorkspaceNotFound
	}
	copied := *ws
	s.workspaces[ws.ID] = &copied
	return nil
}

// Delete implements store.WorkspaceStore.Delete.
func (s *WorkspaceStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workspaces[id]; !ok {
		return store.ErrWorkspaceNotFound
	}
	delete(s.workspaces, id)
	for key := range s.members {
		if key.workspaceID == id {
			delete(s.members, key)
		}
	}
	return nil
}

// GetMember implements store.WorkspaceStore.GetMember.
func (s *WorkspaceStore) GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.WorkspaceMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[memberKey{workspaceID, userID}]
	if !ok {
		return nil, store.ErrMemberNotFound
	}
	copied := *member
	return &copied, nil
}

// ListMembers implements store.WorkspaceStore.ListMembers.
func (s *WorkspaceStore) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*domain.WorkspaceMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var members []*domain.WorkspaceMember
	for key, member := range s.members {
		if key.workspaceID != workspaceID {
			continue
		}
		copied := *member
		members = append(members, &copied)
	}

	sort.Slice(members, func(i, j int) bool {
		return members[i].CreatedAt.Before(members[j].CreatedAt)
	})
	return members, nil
}

// AddMember implements store.WorkspaceStore.AddMember.
func (s *WorkspaceStore) AddMember(ctx context.Context, member *domain.WorkspaceMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{member.WorkspaceID, member.UserID}
	if _, ok := s.members[key]; ok {
		return store.ErrMemberExists
	}
	copied := *member
	s.members[key] = &copied
	return nil
}

// UpdateMemberRole implements store.WorkspaceStore.UpdateMemberRole.
func (s *WorkspaceStore) UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, role domain.MemberRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{workspaceID, userID}
	member, ok := s.members[key]
	if !ok {
		return store.ErrMemberNotFound
	}
	if member.Role == domain.MemberRoleOwner && role != domain.MemberRoleOwner && s.ownerCount(workspaceID) == 1 {
		return domain.ErrLastOwner
	}
	member.Role = role
	return nil
}

// RemoveMember implements store.WorkspaceStore.RemoveMember.
func (s *WorkspaceStore) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{workspaceID, userID}
	member, ok := s.members[key]
	if !ok {
		return store.ErrMemberNotFound
	}
	if member.Role == domain.MemberRoleOwner && s.ownerCount(workspaceID) == 1 {
		return domain.ErrLastOwner
	}
	delete(s.members, key)
	return nil
}

// ownerCount counts OWNER members; callers hold the lock.
func (s *WorkspaceStore) ownerCount(workspaceID uuid.UUID) int {
	count := 0
	for key, member := range s.members {
		if key.workspaceID == workspaceID && member.Role == domain.MemberRoleOwner {
			count++
		}
	}
	return count
}
