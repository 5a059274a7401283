package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/platform/logger"
	"github.com/qaforge/qaforge/internal/store"
)

// SettingsStore implements store.UserSettingsStore over PostgreSQL.
type SettingsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSettingsStore creates a PostgreSQL implementation of
// store.UserSettingsStore.
func NewSettingsStore(db store.DBTX, logger *slog.Logger) *SettingsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsStore{
		db:     db,
		logger: logger.With(slog.String("component", "settings_store")),
	}
}

var _ store.UserSettingsStore = (*SettingsStore)(nil)

// Get implements store.UserSettingsStore.Get. Users that never saved
// settings get the defaults back, no row is created.
func (s *SettingsStore) Get(ctx context.Context, userID uuid.UUID) (*domain.UserSettings, error) {
	query := `
		SELECT user_id, theme, language, notifications_on, default_workspace_id, updated_at
		FROM user_settings
		WHERE user_id = $1
	`
	var settings domain.UserSettings
	var defaultWorkspace uuid.NullUUID
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&settings.UserID, &settings.Theme, &settings.Language,
		&settings.NotificationsOn, &defaultWorkspace, &settings.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultUserSettings(userID), nil
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get user settings", "error", err, "user_id", userID)
		return nil, err
	}
	if defaultWorkspace.Valid {
		settings.DefaultWorkspaceID = defaultWorkspace.UUID
	}
	return &settings, nil
}

// Upsert implements store.UserSettingsStore.Upsert.
func (s *SettingsStore) Upsert(ctx context.Context, settings *domain.UserSettings) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	settings.UpdatedAt = time.Now().UTC()
	var defaultWorkspace uuid.NullUUID
	if settings.DefaultWorkspaceID != uuid.Nil {
		defaultWorkspace = uuid.NullUUID{UUID: settings.DefaultWorkspaceID, Valid: true}
	}

	query := `
		INSERT INTO user_settings (user_id, theme, language, notifications_on, default_workspace_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET theme = EXCLUDED.theme,
		    language = EXCLUDED.language,
		    notifications_on = EXCLUDED.notifications_on,
		    default_workspace_id = EXCLUDED.default_workspace_id,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		settings.UserID, settings.Theme, settings.Language,
		settings.NotificationsOn, defaultWorkspace, settings.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to upsert user settings", "error", err, "user_id", settings.UserID)
		return err
	}
	return nil
}

// ConfigStore implements store.SystemConfigStore over PostgreSQL.
type ConfigStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewConfigStore creates a PostgreSQL implementation of
// store.SystemConfigStore.
func NewConfigStore(db store.DBTX, logger *slog.Logger) *ConfigStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigStore{
		db:     db,
		logger: logger.With(slog.String("component", "config_store")),
	}
}

var _ store.SystemConfigStore = (*ConfigStore)(nil)

// Get implements store.SystemConfigStore.Get.
func (s *ConfigStore) Get(ctx context.Context, key string) (*domain.SystemConfig, error) {
	var cfg domain.SystemConfig
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, updated_by, updated_at FROM system_config WHERE key = $1`, key,
	).Scan(&cfg.Key, &cfg.Value, &cfg.UpdatedBy, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrConfigNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// List implements store.SystemConfigStore.List.
func (s *ConfigStore) List(ctx context.Context) ([]*domain.SystemConfig, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, updated_by, updated_at FROM system_config ORDER BY key`)
	if err != nil {
		log.Error("failed to list system config", "error", err)
		return nil, err
	}
	defer closeRows(rows, log)

	configs := []*domain.SystemConfig{}
	for rows.Next() {
		var cfg domain.SystemConfig
		if err := rows.Scan(&cfg.Key, &cfg.Value, &cfg.UpdatedBy, &cfg.UpdatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, &cfg)
	}
	return configs, rows.Err()
}

// Upsert implements store.SystemConfigStore.Upsert.
func (s *ConfigStore) Upsert(ctx context.Context, cfg *domain.SystemConfig) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	cfg.UpdatedAt = time.Now().UTC()
	query := `
		INSERT INTO system_config (key, value, updated_by, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_by = EXCLUDED.updated_by,
		    updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, cfg.Key, cfg.Value, cfg.UpdatedBy, cfg.UpdatedAt); err != nil {
		log.Error("failed to upsert system config", "error", err, "key", cfg.Key)
		return err
	}
	log.Info("system config updated", "key", cfg.Key)
	return nil
}
