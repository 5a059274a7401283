package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// PageKind distinguishes the two levels of the UI-surface hierarchy:
// a SYSTEM groups pages, a PAGE is a concrete surface tests can target.
type PageKind string

// Possible page kinds.
const (
	PageKindSystem PageKind = "SYSTEM"
	PageKindPage   PageKind = "PAGE"
)

// Page-specific validation errors.
var (
	ErrEmptyPageID     = errors.New("page ID cannot be empty")
	ErrEmptyPageName   = errors.New("page name cannot be empty")
	ErrInvalidPageKind = errors.New("invalid page kind")
)

// Page is a node in the per-project hierarchy of UI surfaces. A nil ParentID
// marks a root node. Parent nodes must belong to the same project.
type Page struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Kind        PageKind   `json:"kind"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	URL         string     `json:"url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewPage creates a new Page node under the given project.
func NewPage(projectID uuid.UUID, parentID *uuid.UUID, kind PageKind, name, description string) (*Page, error) {
	p := &Page{
		ID:          uuid.New(),
		ProjectID:   projectID,
		ParentID:    parentID,
		Kind:        kind,
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Validate checks if the Page has valid data.
func (p *Page) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyPageID
	}

	if p.ProjectID == uuid.Nil {
		return ErrEmptyProjectID
	}

	if p.Name == "" {
		return ErrEmptyPageName
	}

	switch p.Kind {
	case PageKindSystem, PageKindPage:
		return nil
	default:
		return ErrInvalidPageKind
	}
}
