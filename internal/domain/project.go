package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Project-specific validation errors.
var (
	ErrEmptyProjectID   = errors.New("project ID cannot be empty")
	ErrEmptyProjectName = errors.New("project name cannot be empty")
	ErrProjectNameTooLong = errors.New("project name must be at most 100 characters")
)

// Project groups pages, tests, runs and issues under one workspace.
type Project struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProject creates a new Project in the given workspace.
func NewProject(workspaceID uuid.UUID, name, description string) (*Project, error) {
	p := &Project{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
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

// Validate checks if the Project has valid data.
func (p *Project) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyProjectID
	}

	if p.WorkspaceID == uuid.Nil {
		return ErrEmptyWorkspaceID
	}

	if p.Name == "" {
		return ErrEmptyProjectName
	}

	if len(p.Name) > 100 {
		return ErrProjectNameTooLong
	}

	return nil
}
