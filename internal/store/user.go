package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
)

// UserFilter narrows user listings. Zero values mean "no filter".
type UserFilter struct {
	Role   domain.UserRole
	Search string // case-insensitive substring over email and display name
}

// UserStore defines the interface for user persistence.
type UserStore interface {
	// Create saves a new user. The user must carry a hashed password.
	// Returns ErrEmailExists if the email is already registered.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	// Returns ErrUserNotFound if no user has the email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns a page of users newest-first plus the total match count.
	List(ctx context.Context, filter UserFilter, page PageRequest) ([]*domain.User, int, error)

	// Update saves changes to an existing user.
	// Returns ErrUserNotFound if the user does not exist.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user.
	// Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserSettingsStore persists per-user preference singletons.
type UserSettingsStore interface {
	// Get returns the user's settings, falling back to defaults when the
	// user has never saved any.
	Get(ctx context.Context, userID uuid.UUID) (*domain.UserSettings, error)

	// Upsert creates or replaces the user's settings row.
	Upsert(ctx context.Context, settings *domain.UserSettings) error
}

// SystemConfigStore persists global configuration rows.
type SystemConfigStore interface {
	// Get returns one configuration row.
	// Returns ErrConfigNotFound if the key is absent.
	Get(ctx context.Context, key string) (*domain.SystemConfig, error)

	// List returns all configuration rows ordered by key.
	List(ctx context.Context) ([]*domain.SystemConfig, error)

	// Upsert creates or replaces a configuration row.
	Upsert(ctx context.Context, cfg *domain.SystemConfig) error
}
