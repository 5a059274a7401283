package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/platform/logger"
	"github.com/qaforge/qaforge/internal/store"
)

// ProjectStore implements store.ProjectStore over PostgreSQL.
type ProjectStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewProjectStore creates a PostgreSQL implementation of store.ProjectStore.
func NewProjectStore(db store.DBTX, logger *slog.Logger) *ProjectStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectStore{
		db:     db,
		logger: logger.With(slog.String("component", "project_store")),
	}
}

var _ store.ProjectStore = (*ProjectStore)(nil)

// Create implements store.ProjectStore.Create.
func (s *ProjectStore) Create(ctx context.Context, project *domain.Project) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := project.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, workspace_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, project.ID, project.WorkspaceID, project.Name, project.Description,
		project.CreatedAt, project.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: workspace %s not found", store.ErrInvalidEntity, project.WorkspaceID)
		}
		log.Error("failed to create project", "error", err, "project_id", project.ID)
		return err
	}

	log.Info("project created", "project_id", project.ID, "workspace_id", project.WorkspaceID)
	return nil
}

// GetByID implements store.ProjectStore.GetByID.
func (s *ProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var p domain.Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, description, created_at, updated_at
		FROM projects
		WHERE id = $1
	`, id).Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListByWorkspace implements store.ProjectStore.ListByWorkspace.
func (s *ProjectStore) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, page store.PageRequest) ([]*domain.Project, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM projects WHERE workspace_id = $1`, workspaceID,
	).Scan(&total); err != nil {
		log.Error("failed to count projects", "error", err, "workspace_id", workspaceID)
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, description, created_at, updated_at
		FROM projects
		WHERE workspace_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, workspaceID, page.Limit, page.Offset)
	if err != nil {
		log.Error("failed to list projects", "error", err, "workspace_id", workspaceID)
		return nil, 0, err
	}
	defer closeRows(rows, log)

	projects := []*domain.Project{}
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

// Update implements store.ProjectStore.Update.
func (s *ProjectStore) Update(ctx context.Context, project *domain.Project) error {
	if err := project.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	project.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET name = $1, description = $2, updated_at = $3
		WHERE id = $4
	`, project.Name, project.Description, project.UpdatedAt, project.ID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update project", "error", err, "project_id", project.ID)
		return err
	}
	return requireRowAffected(result, store.ErrProjectNotFound)
}

// Delete implements store.ProjectStore.Delete.
func (s *ProjectStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete project", "error", err, "project_id", id)
		return err
	}
	if err := requireRowAffected(result, store.ErrProjectNotFound); err != nil {
		return err
	}
	log.Info("project deleted", "project_id", id)
	return nil
}
