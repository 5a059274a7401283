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

// PageStore implements store.PageStore over PostgreSQL.
type PageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPageStore creates a PostgreSQL implementation of store.PageStore.
func NewPageStore(db store.DBTX, logger *slog.Logger) *PageStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageStore{
		db:     db,
		logger: logger.With(slog.String("component", "page_store")),
	}
}

var _ store.PageStore = (*PageStore)(nil)

const pageColumns = "id, project_id, parent_id, kind, name, description, url, created_at, updated_at"

// Create implements store.PageStore.Create.
func (s *PageStore) Create(ctx context.Context, p *domain.Page) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (id, project_id, parent_id, kind, name, description, url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.ProjectID, p.ParentID, p.Kind, p.Name, p.Description,
		p.URL, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: project or parent page does not exist", store.ErrInvalidEntity)
		}
		log.Error("failed to create page", "error", err, "page_id", p.ID)
		return err
	}

	log.Info("page created", "page_id", p.ID, "project_id", p.ProjectID, "kind", p.Kind)
	return nil
}

// GetByID implements store.PageStore.GetByID.
func (s *PageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Page, error) {
	page, err := scanPage(s.db.QueryRowContext(ctx,
		"SELECT "+pageColumns+" FROM pages WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPageNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get page", "error", err, "page_id", id)
		return nil, err
	}
	return page, nil
}

// ListByProject implements store.PageStore.ListByProject.
func (s *PageStore) ListByProject(ctx context.Context, projectID uuid.UUID, filter store.PageFilter, page store.PageRequest) ([]*domain.Page, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where := "WHERE project_id = $1"
	args := []any{projectID}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		where += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if filter.ParentID != nil {
		args = append(args, *filter.ParentID)
		where += fmt.Sprintf(" AND parent_id = $%d", len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM pages "+where, args...).Scan(&total); err != nil {
		log.Error("failed to count pages", "error", err, "project_id", projectID)
		return nil, 0, err
	}

	args = append(args, page.Limit, page.Offset)
	query := fmt.Sprintf(
		"SELECT %s FROM pages %s ORDER BY created_at LIMIT $%d OFFSET $%d",
		pageColumns, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list pages", "error", err, "project_id", projectID)
		return nil, 0, err
	}
	defer closeRows(rows, log)

	pages := []*domain.Page{}
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, 0, err
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return pages, total, nil
}

// Update implements store.PageStore.Update.
func (s *PageStore) Update(ctx context.Context, p *domain.Page) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	p.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE pages
		SET parent_id = $1, kind = $2, name = $3, description = $4, url = $5, updated_at = $6
		WHERE id = $7
	`, p.ParentID, p.Kind, p.Name, p.Description, p.URL, p.UpdatedAt, p.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: parent page does not exist", store.ErrInvalidEntity)
		}
		log.Error("failed to update page", "error", err, "page_id", p.ID)
		return err
	}
	return requireRowAffected(result, store.ErrPageNotFound)
}

// Delete implements store.PageStore.Delete. Children are re-rooted by the
// schema's ON DELETE SET NULL.
func (s *PageStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete page", "error", err, "page_id", id)
		return err
	}
	if err := requireRowAffected(result, store.ErrPageNotFound); err != nil {
		return err
	}
	log.Info("page deleted", "page_id", id)
	return nil
}

func scanPage(row scanner) (*domain.Page, error) {
	var p domain.Page
	var kind string
	var url sql.NullString
	err := row.Scan(
		&p.ID, &p.ProjectID, &p.ParentID, &kind, &p.Name, &p.Description,
		&url, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Kind = domain.PageKind(kind)
	p.URL = url.String
	return &p, nil
}
