package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
)

// KnowledgeFilter narrows knowledge-base listings.
type KnowledgeFilter struct {
	Category string
	Tag      string
	Search   string // case-insensitive substring over title and content
}

// KnowledgeStore defines the interface for knowledge-base persistence.
type KnowledgeStore interface {
	// Create saves a new knowledge entry.
	Create(ctx context.Context, entry *domain.KnowledgeEntry) error

	// GetByID retrieves an entry by ID.
	// Returns ErrKnowledgeNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.KnowledgeEntry, error)

	// List returns a page of entries newest-first plus the total match count.
	List(ctx context.Context, filter KnowledgeFilter, page PageRequest) ([]*domain.KnowledgeEntry, int, error)

	// Update saves changes to an existing entry. Authorization (author or
	// admin) is the handler's responsibility.
	Update(ctx context.Context, entry *domain.KnowledgeEntry) error

	// Delete hard-deletes an entry.
	Delete(ctx context.Context, id uuid.UUID) error
}
