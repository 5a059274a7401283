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

// RunStore implements store.RunStore over PostgreSQL.
type RunStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunStore creates a PostgreSQL implementation of store.RunStore. It takes
// *sql.DB rather than DBTX because CreateWithExecutions opens its own
// transaction for the run+executions batch.
func NewRunStore(db *sql.DB, logger *slog.Logger) *RunStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunStore{
		db:     db,
		logger: logger.With(slog.String("component", "run_store")),
	}
}

var _ store.RunStore = (*RunStore)(nil)

const runColumns = "id, project_id, name, type, status, total_count, triggered_by, created_at, updated_at"

// CreateWithExecutions implements store.RunStore.CreateWithExecutions.
func (s *RunStore) CreateWithExecutions(ctx context.Context, run *domain.Run, executions []*domain.Execution) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if run.TotalCount != len(executions) {
		return fmt.Errorf("%w: run total_count %d does not match %d executions",
			store.ErrInvalidEntity, run.TotalCount, len(executions))
	}
	for _, execution := range executions {
		if err := execution.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, project_id, name, type, status, total_count, triggered_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, run.ID, run.ProjectID, run.Name, run.Type, run.Status,
			run.TotalCount, run.TriggeredBy, run.CreatedAt, run.UpdatedAt); err != nil {
			return err
		}

		for _, execution := range executions {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO executions (id, run_id, test_id, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, execution.ID, execution.RunID, execution.TestID,
				execution.Status, execution.CreatedAt, execution.UpdatedAt); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: project or test does not exist", store.ErrInvalidEntity)
		}
		log.Error("failed to create run", "error", err, "run_id", run.ID)
		return err
	}

	log.Info("run created", "run_id", run.ID, "project_id", run.ProjectID, "executions", len(executions))
	return nil
}

// GetByID implements store.RunStore.GetByID.
func (s *RunStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRunNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get run", "error", err, "run_id", id)
		return nil, err
	}
	return run, nil
}

// List implements store.RunStore.List.
func (s *RunStore) List(ctx context.Context, filter store.RunFilter, page store.PageRequest) ([]*domain.Run, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where := "WHERE 1=1"
	args := []any{}
	if filter.ProjectID != uuid.Nil {
		args = append(args, filter.ProjectID)
		where += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM runs "+where, args...).Scan(&total); err != nil {
		log.Error("failed to count runs", "error", err)
		return nil, 0, err
	}

	args = append(args, page.Limit, page.Offset)
	query := fmt.Sprintf(
		"SELECT %s FROM runs %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		runColumns, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list runs", "error", err)
		return nil, 0, err
	}
	defer closeRows(rows, log)

	runs := []*domain.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}

// UpdateStatus implements store.RunStore.UpdateStatus.
func (s *RunStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update run status", "error", err, "run_id", id)
		return err
	}
	if err := requireRowAffected(result, store.ErrRunNotFound); err != nil {
		return err
	}
	log.Info("run status updated", "run_id", id, "status", status)
	return nil
}

// Delete implements store.RunStore.Delete. Executions cascade at the schema
// level.
func (s *RunStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete run", "error", err, "run_id", id)
		return err
	}
	if err := requireRowAffected(result, store.ErrRunNotFound); err != nil {
		return err
	}
	log.Info("run deleted", "run_id", id)
	return nil
}

func scanRun(row scanner) (*domain.Run, error) {
	var r domain.Run
	var status string
	err := row.Scan(
		&r.ID, &r.ProjectID, &r.Name, &r.Type, &status,
		&r.TotalCount, &r.TriggeredBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Status = domain.RunStatus(status)
	return &r, nil
}

// ExecutionStore implements store.ExecutionStore over PostgreSQL.
type ExecutionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewExecutionStore creates a PostgreSQL implementation of
// store.ExecutionStore.
func NewExecutionStore(db store.DBTX, logger *slog.Logger) *ExecutionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecutionStore{
		db:     db,
		logger: logger.With(slog.String("component", "execution_store")),
	}
}

var _ store.ExecutionStore = (*ExecutionStore)(nil)

const executionColumns = "id, run_id, test_id, status, started_at, completed_at, logs, screenshot, error_detail, created_at, updated_at"

// GetByID implements store.ExecutionStore.GetByID.
func (s *ExecutionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	execution, err := scanExecution(s.db.QueryRowContext(ctx,
		"SELECT "+executionColumns+" FROM executions WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrExecutionNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get execution", "error", err, "execution_id", id)
		return nil, err
	}
	return execution, nil
}

// ListByRun implements store.ExecutionStore.ListByRun.
func (s *ExecutionStore) ListByRun(ctx context.Context, runID uuid.UUID) ([]*domain.Execution, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+executionColumns+" FROM executions WHERE run_id = $1 ORDER BY created_at, id", runID)
	if err != nil {
		log.Error("failed to list executions", "error", err, "run_id", runID)
		return nil, err
	}
	defer closeRows(rows, log)

	executions := []*domain.Execution{}
	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, execution)
	}
	return executions, rows.Err()
}

// UpdateResult implements store.ExecutionStore.UpdateResult. The whole result
// is written in one statement so concurrent runner callbacks never interleave
// partial writes.
func (s *ExecutionStore) UpdateResult(ctx context.Context, execution *domain.Execution) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := execution.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	execution.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE executions
		SET status = $1, started_at = $2, completed_at = $3, logs = $4,
		    screenshot = $5, error_detail = $6, updated_at = $7
		WHERE id = $8
	`, execution.Status, execution.StartedAt, execution.CompletedAt,
		execution.Logs, execution.Screenshot, nullableJSON(execution.ErrorDetail),
		execution.UpdatedAt, execution.ID)
	if err != nil {
		log.Error("failed to update execution result", "error", err, "execution_id", execution.ID)
		return err
	}
	return requireRowAffected(result, store.ErrExecutionNotFound)
}

// CountByStatus implements store.ExecutionStore.CountByStatus.
func (s *ExecutionStore) CountByStatus(ctx context.Context, runID uuid.UUID) (map[domain.ExecutionStatus]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, count(*) FROM executions WHERE run_id = $1 GROUP BY status`, runID)
	if err != nil {
		log.Error("failed to count executions by status", "error", err, "run_id", runID)
		return nil, err
	}
	defer closeRows(rows, log)

	counts := map[domain.ExecutionStatus]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[domain.ExecutionStatus(status)] = count
	}
	return counts, rows.Err()
}

func scanExecution(row scanner) (*domain.Execution, error) {
	var e domain.Execution
	var status string
	var logs, screenshot sql.NullString
	var errorDetail []byte
	err := row.Scan(
		&e.ID, &e.RunID, &e.TestID, &status, &e.StartedAt, &e.CompletedAt,
		&logs, &screenshot, &errorDetail, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Status = domain.ExecutionStatus(status)
	e.Logs = logs.String
	e.Screenshot = screenshot.String
	if len(errorDetail) > 0 {
		e.ErrorDetail = append(e.ErrorDetail, errorDetail...)
	}
	return &e, nil
}
