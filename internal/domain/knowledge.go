package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Knowledge-specific validation errors.
var (
	ErrEmptyKnowledgeID      = errors.New("knowledge entry ID cannot be empty")
	ErrEmptyKnowledgeTitle   = errors.New("knowledge entry title cannot be empty")
	ErrEmptyKnowledgeContent = errors.New("knowledge entry content cannot be empty")
)

// KnowledgeEntry is a knowledge-base article. Only the author or a global
// admin may mutate an entry.
type KnowledgeEntry struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	AuthorID  uuid.UUID `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewKnowledgeEntry creates a new KnowledgeEntry authored by the given user.
func NewKnowledgeEntry(authorID uuid.UUID, title, content, category string, tags []string) (*KnowledgeEntry, error) {
	entry := &KnowledgeEntry{
		ID:        uuid.New(),
		Title:     title,
		Content:   content,
		Category:  category,
		Tags:      NormalizeTags(tags),
		AuthorID:  authorID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Validate checks if the KnowledgeEntry has valid data.
func (k *KnowledgeEntry) Validate() error {
	if k.ID == uuid.Nil {
		return ErrEmptyKnowledgeID
	}

	if k.Title == "" {
		return ErrEmptyKnowledgeTitle
	}

	if k.Content == "" {
		return ErrEmptyKnowledgeContent
	}

	if k.AuthorID == uuid.Nil {
		return ErrEmptyUserID
	}

	return nil
}

// CanMutate reports whether the given user may edit or delete the entry.
func (k *KnowledgeEntry) CanMutate(userID uuid.UUID, role UserRole) bool {
	return k.AuthorID == userID || role == UserRoleAdmin
}
