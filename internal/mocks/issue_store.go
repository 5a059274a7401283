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

// IssueStore is an in-memory store.IssueStore. It enforces the one-open-
// issue-per-execution invariant the postgres store delegates to a partial
// unique index.
type IssueStore struct {
	mu     sync.Mutex
	issues map[uuid.UUID]*domain.Issue
}

var _ store.IssueStore = (*IssueStore)(nil)

// NewIssueStore creates an empty in-memory issue store.
func NewIssueStore() *IssueStore {
	return &IssueStore{issues: make(map[uuid.UUID]*domain.Issue)}
}

// Create implements store.IssueStore.Create.
func (s *IssueStore) Create(ctx context.Context, issue *domain.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if issue.ExecutionID != nil {
		for _, existing := range s.issues {
			if existing.ExecutionID != nil && *existing.ExecutionID == *issue.ExecutionID &&
				existing.Status != domain.IssueStatusClosed {
				return store.ErrOpenIssueExists
			}
		}
	}

	copied := *issue
	s.issues[issue.ID] = &copied
	return nil
}

// GetByID implements store.IssueStore.GetByID.
func (s *IssueStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok {
		return nil, store.ErrIssueNotFound
	}
	copied := *issue
	return &copied, nil
}

// List implements store.IssueStore.List.
func (s *IssueStore) List(ctx context.Context, filter store.IssueFilter, page store.PageRequest) ([]*domain.Issue, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*domain.Issue
	for _, issue := range s.issues {
		if filter.ProjectID != uuid.Nil && issue.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Status != "" && issue.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && issue.Severity != filter.Severity {
			continue
		}
		if filter.AssigneeID != uuid.Nil && (issue.AssigneeID == nil || *issue.AssigneeID != filter.AssigneeID) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(issue.Title), strings.ToLower(filter.Search)) {
			continue
		}
		copied := *issue
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	return paginate(matched, page), total, nil
}

// Update implements store.IssueStore.Update.
func (s *IssueStore) Update(ctx context.Context, issue *domain.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.issues[issue.ID]
	if !ok {
		return store.ErrIssueNotFound
	}
	copied := *issue
	copied.Status = existing.Status // status changes go through TransitionStatus
	copied.UpdatedAt = time.Now().UTC()
	s.issues[issue.ID] = &copied
	return nil
}

// TransitionStatus implements store.IssueStore.TransitionStatus.
func (s *IssueStore) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.IssueStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok {
		return store.ErrIssueNotFound
	}
	if issue.Status != from {
		return store.ErrConflict
	}
	issue.Status = to
	issue.UpdatedAt = time.Now().UTC()
	return nil
}

// FindOpenByExecution implements store.IssueStore.FindOpenByExecution.
func (s *IssueStore) FindOpenByExecution(ctx context.Context, executionID uuid.UUID) (*domain.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, issue := range s.issues {
		if issue.ExecutionID != nil && *issue.ExecutionID == executionID &&
			issue.Status != domain.IssueStatusClosed {
			copied := *issue
			return &copied, nil
		}
	}
	return nil, store.ErrIssueNotFound
}

// Delete implements store.IssueStore.Delete.
func (s *IssueStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.issues[id]; !ok {
		return store.ErrIssueNotFound
	}
	delete(s.issues, id)
	return nil
}
