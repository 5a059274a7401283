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

// KnowledgeStore implements store.KnowledgeStore over PostgreSQL.
type KnowledgeStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewKnowledgeStore creates a PostgreSQL implementation of
// store.KnowledgeStore.
func NewKnowledgeStore(db store.DBTX, logger *slog.Logger) *KnowledgeStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KnowledgeStore{
		db:     db,
		logger: logger.With(slog.String("component", "knowledge_store")),
	}
}

var _ store.KnowledgeStore = (*KnowledgeStore)(nil)

const knowledgeColumns = "id, title, content, category, tags, author_id, created_at, updated_at"

// Create implements store.KnowledgeStore.Create.
func (s *KnowledgeStore) Create(ctx context.Context, entry *domain.KnowledgeEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	tags, err := encodeJSON(domain.NormalizeTags(entry.Tags))
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO knowledge_entries (id, title, content, category, tags, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.Title, entry.Content, entry.Category, tags,
		entry.AuthorID, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: author %s not found", store.ErrInvalidEntity, entry.AuthorID)
		}
		log.Error("failed to create knowledge entry", "error", err, "entry_id", entry.ID)
		return err
	}

	log.Info("knowledge entry created", "entry_id", entry.ID, "author_id", entry.AuthorID)
	return nil
}

// GetByID implements store.KnowledgeStore.GetByID.
func (s *KnowledgeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.KnowledgeEntry, error) {
	entry, err := scanKnowledgeEntry(s.db.QueryRowContext(ctx,
		"SELECT "+knowledgeColumns+" FROM knowledge_entries WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrKnowledgeNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get knowledge entry", "error", err, "entry_id", id)
		return nil, err
	}
	return entry, nil
}

// List implements store.KnowledgeStore.List.
func (s *KnowledgeStore) List(ctx context.Context, filter store.KnowledgeFilter, page store.PageRequest) ([]*domain.KnowledgeEntry, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where := "WHERE 1=1"
	args := []any{}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Tag != "" {
		args = append(args, fmt.Sprintf("%q", filter.Tag))
		where += fmt.Sprintf(" AND tags @> $%d::jsonb", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND (title ILIKE $%d OR content ILIKE $%d)", len(args), len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM knowledge_entries "+where, args...).Scan(&total); err != nil {
		log.Error("failed to count knowledge entries", "error", err)
		return nil, 0, err
	}

	args = append(args, page.Limit, page.Offset)
	query := fmt.Sprintf(
		"SELECT %s FROM knowledge_entries %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		knowledgeColumns, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list knowledge entries", "error", err)
		return nil, 0, err
	}
	defer closeRows(rows, log)

	entries := []*domain.KnowledgeEntry{}
	for rows.Next() {
		entry, err := scanKnowledgeEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// Update implements store.KnowledgeStore.Update.
func (s *KnowledgeStore) Update(ctx context.Context, entry *domain.KnowledgeEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	tags, err := encodeJSON(domain.NormalizeTags(entry.Tags))
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	entry.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE knowledge_entries
		SET title = $1, content = $2, category = $3, tags = $4, updated_at = $5
		WHERE id = $6
	`, entry.Title, entry.Content, entry.Category, tags, entry.UpdatedAt, entry.ID)
	if err != nil {
		log.Error("failed to update knowledge entry", "error", err, "entry_id", entry.ID)
		return err
	}
	return requireRowAffected(result, store.ErrKnowledgeNotFound)
}

// Delete implements store.KnowledgeStore.Delete.
func (s *KnowledgeStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_entries WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete knowledge entry", "error", err, "entry_id", id)
		return err
	}
	if err := requireRowAffected(result, store.ErrKnowledgeNotFound); err != nil {
		return err
	}
	log.Info("knowledge entry deleted", "entry_id", id)
	return nil
}

func scanKnowledgeEntry(row scanner) (*domain.KnowledgeEntry, error) {
	var k domain.KnowledgeEntry
	var tags []byte
	err := row.Scan(
		&k.ID, &k.Title, &k.Content, &k.Category, &tags,
		&k.AuthorID, &k.CreatedAt, &k.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(tags, &k.Tags); err != nil {
		return nil, fmt.Errorf("decoding knowledge tags: %w", err)
	}
	if k.Tags == nil {
		k.Tags = []string{}
	}
	return &k, nil
}
