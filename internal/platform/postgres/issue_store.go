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

// IssueStore implements store.IssueStore over PostgreSQL. The schema carries a
// partial unique index on execution_id for non-CLOSED issues, which makes the
// one-open-issue-per-execution invariant hold under concurrent creates.
type IssueStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewIssueStore creates a PostgreSQL implementation of store.IssueStore.
func NewIssueStore(db store.DBTX, logger *slog.Logger) *IssueStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IssueStore{
		db:     db,
		logger: logger.With(slog.String("component", "issue_store")),
	}
}

var _ store.IssueStore = (*IssueStore)(nil)

const issueColumns = "id, project_id, title, description, severity, status, reporter_id, assignee_id, test_id, execution_id, created_at, updated_at"

// Create implements store.IssueStore.Create.
func (s *IssueStore) Create(ctx context.Context, issue *domain.Issue) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := issue.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO issues (id, project_id, title, description, severity, status, reporter_id, assignee_id, test_id, execution_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, issue.ID, issue.ProjectID, issue.Title, issue.Description,
		issue.Severity, issue.Status, issue.ReporterID, issue.AssigneeID,
		issue.TestID, issue.ExecutionID, issue.CreatedAt, issue.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "issues_open_execution_key") {
			return store.ErrOpenIssueExists
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: referenced project, user, test or execution does not exist", store.ErrInvalidEntity)
		}
		log.Error("failed to create issue", "error", err, "issue_id", issue.ID)
		return err
	}

	log.Info("issue created", "issue_id", issue.ID, "project_id", issue.ProjectID, "severity", issue.Severity)
	return nil
}

// GetByID implements store.IssueStore.GetByID.
func (s *IssueStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	issue, err := scanIssue(s.db.QueryRowContext(ctx,
		"SELECT "+issueColumns+" FROM issues WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrIssueNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get issue", "error", err, "issue_id", id)
		return nil, err
	}
	return issue, nil
}

// List implements store.IssueStore.List.
func (s *IssueStore) List(ctx context.Context, filter store.IssueFilter, page store.PageRequest) ([]*domain.Issue, int, error) {
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
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		where += fmt.Sprintf(" AND severity = $%d", len(args))
	}
	if filter.AssigneeID != uuid.Nil {
		args = append(args, filter.AssigneeID)
		where += fmt.Sprintf(" AND assignee_id = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND title ILIKE $%d", len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM issues "+where, args...).Scan(&total); err != nil {
		log.Error("failed to count issues", "error", err)
		return nil, 0, err
	}

	args = append(args, page.Limit, page.Offset)
	query := fmt.Sprintf(
		"SELECT %s FROM issues %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		issueColumns, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list issues", "error", err)
		return nil, 0, err
	}
	defer closeRows(rows, log)

	issues := []*domain.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, 0, err
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return issues, total, nil
}

// Update implements store.IssueStore.Update. Status is deliberately not
// touched here; TransitionStatus owns status changes.
func (s *IssueStore) Update(ctx context.Context, issue *domain.Issue) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := issue.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	issue.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE issues
		SET title = $1, description = $2, severity = $3, assignee_id = $4, updated_at = $5
		WHERE id = $6
	`, issue.Title, issue.Description, issue.Severity, issue.AssigneeID,
		issue.UpdatedAt, issue.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: assignee does not exist", store.ErrInvalidEntity)
		}
		log.Error("failed to update issue", "error", err, "issue_id", issue.ID)
		return err
	}
	return requireRowAffected(result, store.ErrIssueNotFound)
}

// TransitionStatus implements store.IssueStore.TransitionStatus. The UPDATE
// carries the expected current status in its WHERE clause, so a concurrent
// transition that got there first turns this one into a zero-row update,
// reported as ErrConflict.
func (s *IssueStore) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.IssueStatus) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE issues
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, to, time.Now().UTC(), id, from)
	if err != nil {
		if isUniqueViolation(err, "issues_open_execution_key") {
			return store.ErrOpenIssueExists
		}
		log.Error("failed to transition issue status", "error", err, "issue_id", id)
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a lost race from a missing issue.
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM issues WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return store.ErrIssueNotFound
		}
		return store.ErrConflict
	}

	log.Info("issue status transitioned", "issue_id", id, "from", from, "to", to)
	return nil
}

// FindOpenByExecution implements store.IssueStore.FindOpenByExecution.
func (s *IssueStore) FindOpenByExecution(ctx context.Context, executionID uuid.UUID) (*domain.Issue, error) {
	issue, err := scanIssue(s.db.QueryRowContext(ctx,
		"SELECT "+issueColumns+" FROM issues WHERE execution_id = $1 AND status <> $2",
		executionID, domain.IssueStatusClosed))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrIssueNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to find open issue", "error", err, "execution_id", executionID)
		return nil, err
	}
	return issue, nil
}

// Delete implements store.IssueStore.Delete.
func (s *IssueStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM issues WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete issue", "error", err, "issue_id", id)
		return err
	}
	if err := requireRowAffected(result, store.ErrIssueNotFound); err != nil {
		return err
	}
	log.Info("issue deleted", "issue_id", id)
	return nil
}

func scanIssue(row scanner) (*domain.Issue, error) {
	var i domain.Issue
	var severity, status string
	err := row.Scan(
		&i.ID, &i.ProjectID, &i.Title, &i.Description, &severity, &status,
		&i.ReporterID, &i.AssigneeID, &i.TestID, &i.ExecutionID,
		&i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	i.Severity = domain.IssueSeverity(severity)
	i.Status = domain.IssueStatus(status)
	return &i, nil
}
