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

// WebhookStore implements store.WebhookStore over PostgreSQL.
type WebhookStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewWebhookStore creates a PostgreSQL implementation of store.WebhookStore.
func NewWebhookStore(db store.DBTX, logger *slog.Logger) *WebhookStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookStore{
		db:     db,
		logger: logger.With(slog.String("component", "webhook_store")),
	}
}

var _ store.WebhookStore = (*WebhookStore)(nil)

const webhookColumns = "id, project_id, name, provider, token, secret, active, config, last_triggered_at, created_at, updated_at"

// Create implements store.WebhookStore.Create.
func (s *WebhookStore) Create(ctx context.Context, hook *domain.Webhook) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := hook.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhooks (id, project_id, name, provider, token, secret, active, config, last_triggered_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, hook.ID, hook.ProjectID, hook.Name, hook.Provider, hook.Token,
		hook.Secret, hook.Active, nullableJSON(hook.Config),
		hook.LastTriggeredAt, hook.CreatedAt, hook.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "webhooks_token_key") {
			return store.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: project %s not found", store.ErrInvalidEntity, hook.ProjectID)
		}
		log.Error("failed to create webhook", "error", err, "webhook_id", hook.ID)
		return err
	}

	log.Info("webhook created", "webhook_id", hook.ID, "project_id", hook.ProjectID, "provider", hook.Provider)
	return nil
}

// GetByID implements store.WebhookStore.GetByID.
func (s *WebhookStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Webhook, error) {
	hook, err := scanWebhook(s.db.QueryRowContext(ctx,
		"SELECT "+webhookColumns+" FROM webhooks WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrWebhookNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get webhook", "error", err, "webhook_id", id)
		return nil, err
	}
	return hook, nil
}

// GetActiveByToken implements store.WebhookStore.GetActiveByToken. Inactive
// hooks are indistinguishable from unknown tokens on purpose, so the inbound
// endpoint leaks nothing about disabled integrations.
func (s *WebhookStore) GetActiveByToken(ctx context.Context, token string) (*domain.Webhook, error) {
	hook, err := scanWebhook(s.db.QueryRowContext(ctx,
		"SELECT "+webhookColumns+" FROM webhooks WHERE token = $1 AND active = true", token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrWebhookNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get webhook by token", "error", err)
		return nil, err
	}
	return hook, nil
}

// ListByProject implements store.WebhookStore.ListByProject.
func (s *WebhookStore) ListByProject(ctx context.Context, projectID uuid.UUID, page store.PageRequest) ([]*domain.Webhook, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM webhooks WHERE project_id = $1`, projectID,
	).Scan(&total); err != nil {
		log.Error("failed to count webhooks", "error", err, "project_id", projectID)
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+webhookColumns+" FROM webhooks WHERE project_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		projectID, page.Limit, page.Offset)
	if err != nil {
		log.Error("failed to list webhooks", "error", err, "project_id", projectID)
		return nil, 0, err
	}
	defer closeRows(rows, log)

	hooks := []*domain.Webhook{}
	for rows.Next() {
		hook, err := scanWebhook(rows)
		if err != nil {
			return nil, 0, err
		}
		hooks = append(hooks, hook)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return hooks, total, nil
}

// Update implements store.WebhookStore.Update. Token is immutable after
// creation; the inbound URL never changes under an integration.
func (s *WebhookStore) Update(ctx context.Context, hook *domain.Webhook) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := hook.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	hook.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE webhooks
		SET name = $1, provider = $2, secret = $3, config = $4, updated_at = $5
		WHERE id = $6
	`, hook.Name, hook.Provider, hook.Secret, nullableJSON(hook.Config),
		hook.UpdatedAt, hook.ID)
	if err != nil {
		log.Error("failed to update webhook", "error", err, "webhook_id", hook.ID)
		return err
	}
	return requireRowAffected(result, store.ErrWebhookNotFound)
}

// SetActive implements store.WebhookStore.SetActive.
func (s *WebhookStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE webhooks SET active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to set webhook active flag", "error", err, "webhook_id", id)
		return err
	}
	if err := requireRowAffected(result, store.ErrWebhookNotFound); err != nil {
		return err
	}
	log.Info("webhook active flag set", "webhook_id", id, "active", active)
	return nil
}

// StampTriggered implements store.WebhookStore.StampTriggered.
func (s *WebhookStore) StampTriggered(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE webhooks SET last_triggered_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to stamp webhook trigger", "error", err, "webhook_id", id)
		return err
	}
	return requireRowAffected(result, store.ErrWebhookNotFound)
}

// Delete implements store.WebhookStore.Delete. Deliveries cascade at the
// schema level.
func (s *WebhookStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete webhook", "error", err, "webhook_id", id)
		return err
	}
	if err := requireRowAffected(result, store.ErrWebhookNotFound); err != nil {
		return err
	}
	log.Info("webhook deleted", "webhook_id", id)
	return nil
}

// CreateDelivery implements store.WebhookStore.CreateDelivery.
func (s *WebhookStore) CreateDelivery(ctx context.Context, delivery *domain.Delivery) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, webhook_id, status, payload, branch, commit_sha, response, run_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, delivery.ID, delivery.WebhookID, delivery.Status, delivery.Payload,
		delivery.Branch, delivery.Commit, delivery.Response, delivery.RunID,
		delivery.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: webhook %s not found", store.ErrInvalidEntity, delivery.WebhookID)
		}
		log.Error("failed to create delivery", "error", err, "delivery_id", delivery.ID)
		return err
	}

	log.Info("delivery recorded", "delivery_id", delivery.ID, "webhook_id", delivery.WebhookID, "status", delivery.Status)
	return nil
}

// ListDeliveries implements store.WebhookStore.ListDeliveries.
func (s *WebhookStore) ListDeliveries(ctx context.Context, webhookID uuid.UUID, page store.PageRequest) ([]*domain.Delivery, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM deliveries WHERE webhook_id = $1`, webhookID,
	).Scan(&total); err != nil {
		log.Error("failed to count deliveries", "error", err, "webhook_id", webhookID)
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, webhook_id, status, payload, branch, commit_sha, response, run_id, created_at
		FROM deliveries
		WHERE webhook_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, webhookID, page.Limit, page.Offset)
	if err != nil {
		log.Error("failed to list deliveries", "error", err, "webhook_id", webhookID)
		return nil, 0, err
	}
	defer closeRows(rows, log)

	deliveries := []*domain.Delivery{}
	for rows.Next() {
		var d domain.Delivery
		var status string
		var branch, commit, response sql.NullString
		if err := rows.Scan(
			&d.ID, &d.WebhookID, &status, &d.Payload,
			&branch, &commit, &response, &d.RunID, &d.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		d.Status = domain.DeliveryStatus(status)
		d.Branch = branch.String
		d.Commit = commit.String
		d.Response = response.String
		deliveries = append(deliveries, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return deliveries, total, nil
}

func scanWebhook(row scanner) (*domain.Webhook, error) {
	var w domain.Webhook
	var config []byte
	err := row.Scan(
		&w.ID, &w.ProjectID, &w.Name, &w.Provider, &w.Token, &w.Secret,
		&w.Active, &config, &w.LastTriggeredAt, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(config) > 0 {
		w.Config = append(w.Config, config...)
	}
	return &w, nil
}
