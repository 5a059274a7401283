package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
)

// WebhookStore defines the interface for webhook and delivery persistence.
type WebhookStore interface {
	// Create saves a new webhook.
	Create(ctx context.Context, hook *domain.Webhook) error

	// GetByID retrieves a webhook by ID.
	// Returns ErrWebhookNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Webhook, error)

	// GetActiveByToken retrieves an ACTIVE webhook by its inbound URL token.
	// Returns ErrWebhookNotFound for unknown tokens and inactive hooks alike.
	GetActiveByToken(ctx context.Context, token string) (*domain.Webhook, error)

	// ListByProject returns a page of the project's webhooks plus the total.
	ListByProject(ctx context.Context, projectID uuid.UUID, page PageRequest) ([]*domain.Webhook, int, error)

	// Update saves changes to an existing webhook.
	Update(ctx context.Context, hook *domain.Webhook) error

	// SetActive flips the active flag in a single conditional statement.
	// Returns ErrWebhookNotFound if the webhook does not exist.
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	// StampTriggered records the time of the latest matched delivery.
	StampTriggered(ctx context.Context, id uuid.UUID, at time.Time) error

	// Delete hard-deletes a webhook and cascades to its deliveries.
	Delete(ctx context.Context, id uuid.UUID) error

	// CreateDelivery records one processed inbound invocation.
	CreateDelivery(ctx context.Context, delivery *domain.Delivery) error

	// ListDeliveries returns a page of the webhook's deliveries newest-first
	// plus the total count.
	ListDeliveries(ctx context.Context, webhookID uuid.UUID, page PageRequest) ([]*domain.Delivery, int, error)
}
