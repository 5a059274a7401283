package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/store"
)

// TestStore is an in-memory store.TestStore.
type TestStore struct {
	mu    sync.Mutex
	tests map[uuid.UUID]*domain.Test

	// ExecutionCounts overrides CountExecutions per test id.
	ExecutionCounts map[uuid.UUID]int
}

var _ store.TestStore = (*TestStore)(nil)

// NewTestStore creates an empty in-memory test store.
func NewTestStore() *TestStore {
	return &TestStore{
		tests:           make(map[uuid.UUID]*domain.Test),
		ExecutionCounts: make(map[uuid.UUID]int),
	}
}

// Create implements store.TestStore.Create.
func (s *TestStore) Create(ctx context.Context, test *domain.Test) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *test
	s.tests[test.ID] = &copied
	return nil
}

// GetByID implements store.TestStore.GetByID.
func (s *TestStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	test, ok := s.tests[id]
	if !ok {
		return nil, store.ErrTestNotFound
	}
	copied := *test
	return &copied, nil
}

// List implements store.TestStore.List.
func (s *TestStore) List(ctx context.Context, filter store.TestFilter, page store.PageRequest) ([]*domain.Test, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*domain.Test
	for _, test := range s.tests {
		if filter.ProjectID != uuid.Nil && test.ProjectID != filter.ProjectID {
			continue
		}
		if filter.ParentID != nil && (test.ParentID == nil || *test.ParentID != *filter.ParentID) {
			continue
		}
		if filter.Type != "" && test.Type != filter.Type {
			continue
		}
		if filter.Tag != "" && !containsTag(test.Tags, filter.Tag) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(test.Name), strings.ToLower(filter.Search)) {
			continue
		}
		if !filter.IncludeArchived && test.Archived {
			continue
		}
		copied := *test
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	return paginate(matched, page), total, nil
}

// Update implements store.TestStore.Update.
func (s *TestStore) Update(ctx context.Context, test *domain.Test) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tests[test.ID]; !ok {
		return store.ErrTestNotFound
	}
	copied := *test
	s.tests[test.ID] = &copied
	return nil
}

// Archive implements store.TestStore.Archive.
func (s *TestStore) Archive(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	test, ok := s.tests[id]
	if !ok {
		return store.ErrTestNotFound
	}
	test.Archived = true
	return nil
}

// ListChildIDs implements store.TestStore.ListChildIDs.
func (s *TestStore) ListChildIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var children []*domain.Test
	for _, test := range s.tests {
		if test.ParentID != nil && *test.ParentID == id && !test.Archived {
			children = append(children, test)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		return children[i].CreatedAt.Before(children[j].CreatedAt)
	})

	ids := make([]uuid.UUID, 0, len(children))
	for _, child := range children {
		ids = append(ids, child.ID)
	}
	return ids, nil
}

// CountExecutions implements store.TestStore.CountExecutions.
func (s *TestStore) CountExecutions(ctx context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ExecutionCounts[id], nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
