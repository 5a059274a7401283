package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/store"
)

// ScheduleStore is an in-memory store.ScheduleStore.
type ScheduleStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.ScheduledTask
}

var _ store.ScheduleStore = (*ScheduleStore)(nil)

// NewScheduleStore creates an empty in-memory schedule store.
func NewScheduleStore() *ScheduleStore {
	return &ScheduleStore{tasks: make(map[uuid.UUID]*domain.ScheduledTask)}
}

// Create implements store.ScheduleStore.Create.
func (s *ScheduleStore) Create(ctx context.Context, task *domain.ScheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

// GetByID implements store.ScheduleStore.GetByID.
func (s *ScheduleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrScheduleNotFound
	}
	copied := *task
	return &copied, nil
}

// ListByProject implements store.ScheduleStore.ListByProject.
func (s *ScheduleStore) ListByProject(ctx context.Context, projectID uuid.UUID, page store.PageRequest) ([]*domain.ScheduledTask, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*domain.ScheduledTask
	for _, task := range s.tasks {
		if task.ProjectID != projectID {
			continue
		}
		copied := *task
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	return paginate(matched, page), total, nil
}

// Update implements store.ScheduleStore.Update.
func (s *ScheduleStore) Update(ctx context.Context, task *domain.ScheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return store.ErrScheduleNotFound
	}
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

// SetActive implements store.ScheduleStore.SetActive.
func (s *ScheduleStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return store.ErrScheduleNotFound
	}
	task.Active = active
	return nil
}

// Delete implements store.ScheduleStore.Delete.
func (s *ScheduleStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return store.ErrScheduleNotFound
	}
	delete(s.tasks, id)
	return nil
}
