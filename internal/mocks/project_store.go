package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/store"
)

// ProjectStore is an in-memory store.ProjectStore.
type ProjectStore struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*domain.Project
}

var _ store.ProjectStore = (*ProjectStore)(nil)

// NewProjectStore creates an empty in-memory project store.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{projects: make(map[uuid.UUID]*domain.Project)}
}

// Create implements store.ProjectStore.Create.
func (s *ProjectStore) Create(ctx context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *project
	s.projects[project.ID] = &copied
	return nil
}

// GetByID implements store.ProjectStore.GetByID.
func (s *ProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[id]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	copied := *project
	return &copied, nil
}

// ListByWorkspace implements store.ProjectStore.ListByWorkspace.
func (s *ProjectStore) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, page store.PageRequest) ([]*domain.Project, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*domain.Project
	for _, project := range s.projects {
		if project.WorkspaceID != workspaceID {
			continue
		}
		copied := *project
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	return paginate(matched, page), total, nil
}

// Update implements store.ProjectStore.Update.
func (s *ProjectStore) Update(ctx context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[project.ID]; !ok {
		return store.ErrProjectNotFound
	}
	copied := *project
	s.projects[project.ID] = &copied
	return nil
}

// Delete implements store.ProjectStore.Delete.
func (s *ProjectStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return store.ErrProjectNotFound
	}
	delete(s.projects, id)
	return nil
}
