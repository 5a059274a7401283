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

// ScheduleStore implements store.ScheduleStore over PostgreSQL. Test id sets
// are stored as jsonb.
type ScheduleStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewScheduleStore creates a PostgreSQL implementation of store.ScheduleStore.
func NewScheduleStore(db store.DBTX, logger *slog.Logger) *ScheduleStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduleStore{
		db:     db,
		logger: logger.With(slog.String("component", "schedule_store")),
	}
}

var _ store.ScheduleStore = (*ScheduleStore)(nil)

const scheduleColumns = "id, project_id, name, cron_expr, test_ids, active, next_run_at, created_at, updated_at"

// Create implements store.ScheduleStore.Create.
func (s *ScheduleStore) Create(ctx context.Context, task *domain.ScheduledTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	testIDs, err := encodeJSON(task.TestIDs)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (id, project_id, name, cron_expr, test_ids, active, next_run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, task.ID, task.ProjectID, task.Name, task.CronExpr, testIDs,
		task.Active, task.NextRunAt, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: project %s not found", store.ErrInvalidEntity, task.ProjectID)
		}
		log.Error("failed to create scheduled task", "error", err, "schedule_id", task.ID)
		return err
	}

	log.Info("scheduled task created", "schedule_id", task.ID, "project_id", task.ProjectID)
	return nil
}

// GetByID implements store.ScheduleStore.GetByID.
func (s *ScheduleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error) {
	task, err := scanScheduledTask(s.db.QueryRowContext(ctx,
		"SELECT "+scheduleColumns+" FROM scheduled_tasks WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrScheduleNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get scheduled task", "error", err, "schedule_id", id)
		return nil, err
	}
	return task, nil
}

// ListByProject implements store.ScheduleStore.ListByProject.
func (s *ScheduleStore) ListByProject(ctx context.Context, projectID uuid.UUID, page store.PageRequest) ([]*domain.ScheduledTask, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM scheduled_tasks WHERE project_id = $1`, projectID,
	).Scan(&total); err != nil {
		log.Error("failed to count scheduled tasks", "error", err, "project_id", projectID)
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+scheduleColumns+" FROM scheduled_tasks WHERE project_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		projectID, page.Limit, page.Offset)
	if err != nil {
		log.Error("failed to list scheduled tasks", "error", err, "project_id", projectID)
		return nil, 0, err
	}
	defer closeRows(rows, log)

	tasks := []*domain.ScheduledTask{}
	for rows.Next() {
		task, err := scanScheduledTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update implements store.ScheduleStore.Update.
func (s *ScheduleStore) Update(ctx context.Context, task *domain.ScheduledTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	testIDs, err := encodeJSON(task.TestIDs)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	task.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_tasks
		SET name = $1, cron_expr = $2, test_ids = $3, next_run_at = $4, updated_at = $5
		WHERE id = $6
	`, task.Name, task.CronExpr, testIDs, task.NextRunAt, task.UpdatedAt, task.ID)
	if err != nil {
		log.Error("failed to update scheduled task", "error", err, "schedule_id", task.ID)
		return err
	}
	return requireRowAffected(result, store.ErrScheduleNotFound)
}

// SetActive implements store.ScheduleStore.SetActive.
func (s *ScheduleStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_tasks SET active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to set scheduled task active flag", "error", err, "schedule_id", id)
		return err
	}
	if err := requireRowAffected(result, store.ErrScheduleNotFound); err != nil {
		return err
	}
	log.Info("scheduled task active flag set", "schedule_id", id, "active", active)
	return nil
}

// Delete implements store.ScheduleStore.Delete.
func (s *ScheduleStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete scheduled task", "error", err, "schedule_id", id)
		return err
	}
	if err := requireRowAffected(result, store.ErrScheduleNotFound); err != nil {
		return err
	}
	log.Info("scheduled task deleted", "schedule_id", id)
	return nil
}

func scanScheduledTask(row scanner) (*domain.ScheduledTask, error) {
	var t domain.ScheduledTask
	var testIDs []byte
	err := row.Scan(
		&t.ID, &t.ProjectID, &t.Name, &t.CronExpr, &testIDs,
		&t.Active, &t.NextRunAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(testIDs, &t.TestIDs); err != nil {
		return nil, fmt.Errorf("decoding schedule test ids: %w", err)
	}
	if t.TestIDs == nil {
		t.TestIDs = []uuid.UUID{}
	}
	return &t, nil
}
