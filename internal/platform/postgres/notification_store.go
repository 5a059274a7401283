package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/platform/logger"
	"github.com/qaforge/qaforge/internal/store"
)

// NotificationStore implements store.NotificationStore over PostgreSQL.
type NotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewNotificationStore creates a PostgreSQL implementation of
// store.NotificationStore.
func NewNotificationStore(db store.DBTX, logger *slog.Logger) *NotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

var _ store.NotificationStore = (*NotificationStore)(nil)

const notificationColumns = "id, user_id, title, content, type, read, created_at"

// Create implements store.NotificationStore.Create.
func (s *NotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := n.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, content, type, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, n.UserID, n.Title, n.Content, n.Type, n.Read, n.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: user %s not found", store.ErrInvalidEntity, n.UserID)
		}
		log.Error("failed to create notification", "error", err, "notification_id", n.ID)
		return err
	}
	return nil
}

// GetByID implements store.NotificationStore.GetByID.
func (s *NotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	n, err := scanNotification(s.db.QueryRowContext(ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotificationNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get notification", "error", err, "notification_id", id)
		return nil, err
	}
	return n, nil
}

// ListByUser implements store.NotificationStore.ListByUser.
func (s *NotificationStore) ListByUser(ctx context.Context, userID uuid.UUID, filter store.NotificationFilter, page store.PageRequest) ([]*domain.Notification, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where := "WHERE user_id = $1"
	args := []any{userID}
	if filter.UnreadOnly {
		where += " AND read = false"
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM notifications "+where, args...).Scan(&total); err != nil {
		log.Error("failed to count notifications", "error", err, "user_id", userID)
		return nil, 0, err
	}

	args = append(args, page.Limit, page.Offset)
	query := fmt.Sprintf(
		"SELECT %s FROM notifications %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		notificationColumns, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list notifications", "error", err, "user_id", userID)
		return nil, 0, err
	}
	defer closeRows(rows, log)

	notifications := []*domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// MarkRead implements store.NotificationStore.MarkRead. Scoping the UPDATE to
// the owning user means somebody else's notification id behaves exactly like
// a missing one.
func (s *NotificationStore) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to mark notification read", "error", err, "notification_id", id)
		return err
	}
	return requireRowAffected(result, store.ErrNotificationNotFound)
}

// MarkAllRead implements store.NotificationStore.MarkAllRead.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE user_id = $1 AND read = false`, userID)
	if err != nil {
		log.Error("failed to mark all notifications read", "error", err, "user_id", userID)
		return 0, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	log.Info("notifications marked read", "user_id", userID, "count", n)
	return int(n), nil
}

// Delete implements store.NotificationStore.Delete.
func (s *NotificationStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete notification", "error", err, "notification_id", id)
		return err
	}
	return requireRowAffected(result, store.ErrNotificationNotFound)
}

func scanNotification(row scanner) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.ID, &n.UserID, &n.Title, &n.Content, &n.Type, &n.Read, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
