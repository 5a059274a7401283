package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/store"
)

// SettingsStore is an in-memory store.UserSettingsStore.
type SettingsStore struct {
	mu       sync.Mutex
	settings map[uuid.UUID]*domain.UserSettings
}

var _ store.UserSettingsStore = (*SettingsStore)(nil)

// NewSettingsStore creates an empty in-memory settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{settings: make(map[uuid.UUID]*domain.UserSettings)}
}

// Get implements store.UserSettingsStore.Get.
func (s *SettingsStore) Get(ctx context.Context, userID uuid.UUID) (*domain.UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, ok := s.settings[userID]
	if !ok {
		return domain.DefaultUserSettings(userID), nil
	}
	copied := *settings
	return &copied, nil
}

// Upsert implements store.UserSettingsStore.Upsert.
func (s *SettingsStore) Upsert(ctx context.Context, settings *domain.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *settings
	s.settings[settings.UserID] = &copied
	return nil
}

// ConfigStore is an in-memory store.SystemConfigStore.
type ConfigStore struct {
	mu      sync.Mutex
	configs map[string]*domain.SystemConfig
}

var _ store.SystemConfigStore = (*ConfigStore)(nil)

// NewConfigStore creates an empty in-memory system config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{configs: make(map[string]*domain.SystemConfig)}
}

// Get implements store.SystemConfigStore.Get.
func (s *ConfigStore) Get(ctx context.Context, key string) (*domain.SystemConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[key]
	if !ok {
		return nil, store.ErrConfigNotFound
	}
	copied := *cfg
	return &copied, nil
}

// List implements store.SystemConfigStore.List.
func (s *ConfigStore) List(ctx context.Context) ([]*domain.SystemConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs := make([]*domain.SystemConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		copied := *cfg
		configs = append(configs, &copied)
	}
	return configs, nil
}

// Upsert implements store.SystemConfigStore.Upsert.
func (s *ConfigStore) Upsert(ctx context.Context, cfg *domain.SystemConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *cfg
	s.configs[cfg.Key] = &copied
	return nil
}
