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

// TestStore implements store.TestStore over PostgreSQL. Tags are stored as a
// jsonb column so they round-trip as the ordered set the domain normalizes
// them to.
type TestStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewTestStore creates a PostgreSQL implementation of store.TestStore.
func NewTestStore(db store.DBTX, logger *slog.Logger) *TestStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TestStore{
		db:     db,
		logger: logger.With(slog.String("component", "test_store")),
	}
}

var _ store.TestStore = (*TestStore)(nil)

const testColumns = "id, project_id, parent_id, name, type, content, tags, archived, created_at, updated_at"

// Create implements store.TestStore.Create.
func (s *TestStore) Create(ctx context.Context, test *domain.Test) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := test.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	tags, err := encodeJSON(domain.NormalizeTags(test.Tags))
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tests (id, project_id, parent_id, name, type, content, tags, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, test.ID, test.ProjectID, test.ParentID, test.Name, test.Type,
		nullableJSON(test.Content), tags, test.Archived, test.CreatedAt, test.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: project or parent does not exist", store.ErrInvalidEntity)
		}
		log.Error("failed to create test", "error", err, "test_id", test.ID)
		return err
	}

	log.Info("test created", "test_id", test.ID, "project_id", test.ProjectID, "type", test.Type)
	return nil
}

// GetByID implements store.TestStore.GetByID.
func (s *TestStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Test, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+testColumns+" FROM tests WHERE id = $1", id)
	test, err := scanTest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTestNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get test", "error", err, "test_id", id)
		return nil, err
	}
	return test, nil
}

// List implements store.TestStore.List.
func (s *TestStore) List(ctx context.Context, filter store.TestFilter, page store.PageRequest) ([]*domain.Test, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where := "WHERE 1=1"
	args := []any{}
	if filter.ProjectID != uuid.Nil {
		args = append(args, filter.ProjectID)
		where += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	if filter.ParentID != nil {
		args = append(args, *filter.ParentID)
		where += fmt.Sprintf(" AND parent_id = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.Tag != "" {
		args = append(args, fmt.Sprintf("%q", filter.Tag))
		where += fmt.Sprintf(" AND tags @> $%d::jsonb", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	if !filter.IncludeArchived {
		where += " AND archived = false"
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM tests "+where, args...).Scan(&total); err != nil {
		log.Error("failed to count tests", "error", err)
		return nil, 0, err
	}

	args = append(args, page.Limit, page.Offset)
	query := fmt.Sprintf(
		"SELECT %s FROM tests %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		testColumns, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list tests", "error", err)
		return nil, 0, err
	}
	defer closeRows(rows, log)

	tests := []*domain.Test{}
	for rows.Next() {
		test, err := scanTest(rows)
		if err != nil {
			return nil, 0, err
		}
		tests = append(tests, test)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return tests, total, nil
}

// Update implements store.TestStore.Update.
func (s *TestStore) Update(ctx context.Context, test *domain.Test) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := test.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	tags, err := encodeJSON(domain.NormalizeTags(test.Tags))
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	test.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE tests
		SET parent_id = $1, name = $2, type = $3, content = $4, tags = $5, archived = $6, updated_at = $7
		WHERE id = $8
	`, test.ParentID, test.Name, test.Type, nullableJSON(test.Content),
		tags, test.Archived, test.UpdatedAt, test.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: parent does not exist", store.ErrInvalidEntity)
		}
		log.Error("failed to update test", "error", err, "test_id", test.ID)
		return err
	}
	return requireRowAffected(result, store.ErrTestNotFound)
}

// Archive implements store.TestStore.Archive.
func (s *TestStore) Archive(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE tests SET archived = true, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to archive test", "error", err, "test_id", id)
		return err
	}
	if err := requireRowAffected(result, store.ErrTestNotFound); err != nil {
		return err
	}
	log.Info("test archived", "test_id", id)
	return nil
}

// ListChildIDs implements store.TestStore.ListChildIDs.
func (s *TestStore) ListChildIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM tests WHERE parent_id = $1 AND archived = false ORDER BY created_at`, id)
	if err != nil {
		log.Error("failed to list test children", "error", err, "test_id", id)
		return nil, err
	}
	defer closeRows(rows, log)

	ids := []uuid.UUID{}
	for rows.Next() {
		var childID uuid.UUID
		if err := rows.Scan(&childID); err != nil {
			return nil, err
		}
		ids = append(ids, childID)
	}
	return ids, rows.Err()
}

// CountExecutions implements store.TestStore.CountExecutions.
func (s *TestStore) CountExecutions(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM executions WHERE test_id = $1`, id).Scan(&count)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count executions", "error", err, "test_id", id)
		return 0, err
	}
	return count, nil
}

// scanner is the common surface of *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTest(row scanner) (*domain.Test, error) {
	var t domain.Test
	var content, tags []byte
	err := row.Scan(
		&t.ID, &t.ProjectID, &t.ParentID, &t.Name, &t.Type,
		&content, &tags, &t.Archived, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(content) > 0 {
		t.Content = append(t.Content, content...)
	}
	if err := decodeJSON(tags, &t.Tags); err != nil {
		return nil, fmt.Errorf("decoding test tags: %w", err)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return &t, nil
}

// nullableJSON maps an empty raw payload to SQL NULL instead of the invalid
// empty jsonb literal.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
