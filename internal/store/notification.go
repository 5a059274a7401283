package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
)

// NotificationFilter narrows notification listings. UnreadOnly limits the
// result to unread rows.
type NotificationFilter struct {
	UnreadOnly bool
	Type       string
}

// NotificationStore defines the interface for notification persistence.
type NotificationStore interface {
	// Create saves a new notification.
	Create(ctx context.Context, n *domain.Notification) error

	// GetByID retrieves a notification by ID.
	// Returns ErrNotificationNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)

	// ListByUser returns a page of the user's notifications newest-first
	// plus the total count.
	ListByUser(ctx context.Context, userID uuid.UUID, filter NotificationFilter, page PageRequest) ([]*domain.Notification, int, error)

	// MarkRead sets the read flag in one conditional statement scoped to the
	// owning user. Returns ErrNotificationNotFound when the row is absent or
	// owned by someone else.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error

	// MarkAllRead marks every unread notification of the user as read and
	// returns how many rows changed.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)

	// Delete removes a notification owned by the user.
	Delete(ctx context.Context, id, userID uuid.UUID) error
}
