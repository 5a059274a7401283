package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/store"
)

// WebhookStore is an in-memory store.WebhookStore.
type WebhookStore struct {
	mu         sync.Mutex
	webhooks   map[uuid.UUID]*domain.Webhook
	deliveries map[uuid.UUID]*domain.Delivery
}

var _ store.WebhookStore = (*WebhookStore)(nil)

// NewWebhookStore creates an empty in-memory webhook store.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		webhooks:   make(map[uuid.UUID]*domain.Webhook),
		deliveries: make(map[uuid.UUID]*domain.Delivery),
	}
}

// Create implements store.WebhookStore.Create.
func (s *WebhookStore) Create(ctx context.Context, hook *domain.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.webhooks {
		if existing.Token == hook.Token {
			return store.ErrDuplicate
		}
	}
	copied := *hook
	s.webhooks[hook.ID] = &copied
	return nil
}

// GetByID implements store.WebhookStore.GetByID.
func (s *WebhookStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hook, ok := s.webhooks[id]
	if !ok {
		return nil, store.ErrWebhookNotFound
	}
	copied := *hook
	return &copied, nil
}

// GetActiveByToken implements store.WebhookStore.GetActiveByToken.
func (s *WebhookStore) GetActiveByToken(ctx context.Context, token string) (*domain.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, hook := range s.webhooks {
		if hook.Token == token && hook.Active {
			copied := *hook
			return &copied, nil
		}
	}
	return nil, store.ErrWebhookNotFound
}

// ListByProject implements store.WebhookStore.ListByProject.
func (s *WebhookStore) ListByProject(ctx context.Context, projectID uuid.UUID, page store.PageRequest) ([]*domain.Webhook, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*domain.Webhook
	for _, hook := range s.webhooks {
		if hook.ProjectID != projectID {
			continue
		}
		copied := *hook
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	return paginate(matched, page), total, nil
}

// Update implements store.WebhookStore.Update.
func (s *WebhookStore) Update(ctx context.Context, hook *domain.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.webhooks[hook.ID]
	if !ok {
		return store.ErrWebhookNotFound
	}
	copied := *hook
	copied.Token = existing.Token // token is immutable
	s.webhooks[hook.ID] = &copied
	return nil
}

// SetActive implements store.WebhookStore.SetActive.
func (s *WebhookStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hook, ok := s.webhooks[id]
	if !ok {
		return store.ErrWebhookNotFound
	}
	hook.Active = active
	return nil
}

// StampTriggered implements store.WebhookStore.StampTriggered.
func (s *WebhookStore) StampTriggered(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hook, ok := s.webhooks[id]
	if !ok {
		return store.ErrWebhookNotFound
	}
	hook.LastTriggeredAt = &at
	return nil
}

// Delete implements store.WebhookStore.Delete.
func (s *WebhookStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.webhooks[id]; !ok {
		return store.ErrWebhookNotFound
	}
	delete(s.webhooks, id)
	for deliveryID, delivery := range s.deliveries {
		if delivery.WebhookID == id {
			delete(s.deliveries, deliveryID)
		}
	}
	return nil
}

// CreateDelivery implements store.WebhookStore.CreateDelivery.
func (s *WebhookStore) CreateDelivery(ctx context.Context, delivery *domain.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *delivery
	s.deliveries[delivery.ID] = &copied
	return nil
}

// ListDeliveries implements store.WebhookStore.ListDeliveries.
func (s *WebhookStore) ListDeliveries(ctx context.Context, webhookID uuid.UUID, page store.PageRequest) ([]*domain.Delivery, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*domain.Delivery
	for _, delivery := range s.deliveries {
		if delivery.WebhookID != webhookID {
			continue
		}
		copied := *delivery
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	return paginate(matched, page), total, nil
}
