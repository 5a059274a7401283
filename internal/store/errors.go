package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. Entity-specific variants below wrap it so callers can match
	// either the generic or the specific error.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored, or references a row that does not exist.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrConflict is returned when a conditional update loses against the
	// current state of the row, for example an issue status transition whose
	// precondition no longer holds.
	ErrConflict = errors.New("conflicting update")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors.

	ErrUserNotFound         = fmt.Errorf("%w: user", ErrNotFound)
	ErrWorkspaceNotFound    = fmt.Errorf("%w: workspace", ErrNotFound)
	ErrMemberNotFound       = fmt.Errorf("%w: workspace member", ErrNotFound)
	ErrProjectNotFound      = fmt.Errorf("%w: project", ErrNotFound)
	ErrPageNotFound         = fmt.Errorf("%w: page", ErrNotFound)
	ErrTestNotFound         = fmt.Errorf("%w: test", ErrNotFound)
	ErrRunNotFound          = fmt.Errorf("%w: run", ErrNotFound)
	ErrExecutionNotFound    = fmt.Errorf("%w: execution", ErrNotFound)
	ErrIssueNotFound        = fmt.Errorf("%w: issue", ErrNotFound)
	ErrKnowledgeNotFound    = fmt.Errorf("%w: knowledge entry", ErrNotFound)
	ErrWebhookNotFound      = fmt.Errorf("%w: webhook", ErrNotFound)
	ErrDeliveryNotFound     = fmt.Errorf("%w: delivery", ErrNotFound)
	ErrScheduleNotFound     = fmt.Errorf("%w: scheduled task", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("%w: notification", ErrNotFound)
	ErrConfigNotFound       = fmt.Errorf("%w: system config", ErrNotFound)

	// Entity-specific "duplicate" errors.

	// ErrEmailExists indicates that a user with the given email already exists.
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)

	// ErrMemberExists indicates the user already has a membership record for
	// the workspace.
	ErrMemberExists = fmt.Errorf("%w: workspace member", ErrDuplicate)

	// ErrOpenIssueExists indicates an open issue already exists for the
	// execution; the duplicate auto-create attempt must surface the existing
	// issue instead of inserting a second one.
	ErrOpenIssueExists = fmt.Errorf("%w: open issue for execution", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
