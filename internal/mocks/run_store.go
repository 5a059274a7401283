package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/store"
)

// RunStore is an in-memory store.RunStore. Executions live in the same
// backing maps, mirroring how the postgres stores share tables; the
// store.ExecutionStore view over them comes from Executions().
type RunStore struct {
	mu         sync.Mutex
	runs       map[uuid.UUID]*domain.Run
	executions map[uuid.UUID]*domain.Execution
}

var _ store.RunStore = (*RunStore)(nil)

// NewRunStore creates an empty in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs:       make(map[uuid.UUID]*domain.Run),
		executions: make(map[uuid.UUID]*domain.Execution),
	}
}

// Executions returns the store.ExecutionStore view over the same data.
func (s *RunStore) Executions() *ExecutionStore {
	return &ExecutionStore{runs: s}
}

// CreateWithExecutions implements store.RunStore.CreateWithExecutions.
func (s *RunStore) CreateWithExecutions(ctx context.Context, run *domain.Run, executions []*domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runCopy := *run
	s.runs[run.ID] = &runCopy
	for _, execution := range executions {
		copied := *execution
		s.executions[execution.ID] = &copied
	}
	return nil
}

// GetByID implements store.RunStore.GetByID.
func (s *RunStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, store.ErrRunNotFound
	}
	copied := *run
	return &copied, nil
}

// List implements store.RunStore.List.
func (s *RunStore) List(ctx context.Context, filter store.RunFilter, page store.PageRequest) ([]*domain.Run, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*domain.Run
	for _, run := range s.runs {
		if filter.ProjectID != uuid.Nil && run.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(run.Name), strings.ToLower(filter.Search)) {
			continue
		}
		copied := *run
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	return paginate(matched, page), total, nil
}

// UpdateStatus implements store.RunStore.UpdateStatus.
func (s *RunStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return store.ErrRunNotFound
	}
	run.Status = status
	run.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete implements store.RunStore.Delete.
func (s *RunStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return store.ErrRunNotFound
	}
	delete(s.runs, id)
	for executionID, execution := range s.executions {
		if execution.RunID == id {
			delete(s.executions, executionID)
		}
	}
	return nil
}

// ExecutionStore is the in-memory store.ExecutionStore view over a RunStore.
type ExecutionStore struct {
	runs *RunStore
}

var _ store.ExecutionStore = (*ExecutionStore)(nil)

// GetByID implements store.ExecutionStore.GetByID.
func (s *ExecutionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	s.runs.mu.Lock()
	defer s.runs.mu.Unlock()

	execution, ok := s.runs.executions[id]
	if !ok {
		return nil, store.ErrExecutionNotFound
	}
	copied := *execution
	return &copied, nil
}

// ListByRun implements store.ExecutionStore.ListByRun.
func (s *ExecutionStore) ListByRun(ctx context.Context, runID uuid.UUID) ([]*domain.Execution, error) {
	s.runs.mu.Lock()
	defer s.runs.mu.Unlock()

	var matched []*domain.Execution
	for _, execution := range s.runs.executions {
		if execution.RunID != runID {
			continue
		}
		copied := *execution
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched, nil
}

// UpdateResult implements store.ExecutionStore.UpdateResult.
func (s *ExecutionStore) UpdateResult(ctx context.Context, execution *domain.Execution) error {
	s.runs.mu.Lock()
	defer s.runs.mu.Unlock()

	if _, ok := s.runs.executions[execution.ID]; !ok {
		return store.ErrExecutionNotFound
	}
	copied := *execution
	copied.UpdatedAt = time.Now().UTC()
	s.runs.executions[execution.ID] = &copied
	return nil
}

// CountByStatus implements store.ExecutionStore.CountByStatus.
func (s *ExecutionStore) CountByStatus(ctx context.Context, runID uuid.UUID) (map[domain.ExecutionStatus]int, error) {
	s.runs.mu.Lock()
	defer s.runs.mu.Unlock()

	counts := make(map[domain.ExecutionStatus]int)
	for _, execution := range s.runs.executions {
		if execution.RunID == runID {
			counts[execution.Status]++
		}
	}
	return counts, nil
}
