package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWebhook(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()

	t.Run("generates a unique hex token", func(t *testing.T) {
		t.Parallel()

		first, err := domain.NewWebhook(projectID, "ci push", "github", "", nil)
		require.NoError(t, err)
		second, err := domain.NewWebhook(projectID, "ci push", "github", "", nil)
		require.NoError(t, err)

		assert.Len(t, first.Token, 32)
		assert.NotEqual(t, first.Token, second.Token)
		assert.True(t, first.Active)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewWebhook(projectID, "", "github", "", nil)
		assert.ErrorIs(t, err, domain.ErrEmptyWebhookName)
	})

	t.Run("rejects malformed config JSON", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewWebhook(projectID, "hook", "github", "", json.RawMessage(`{oops`))
		assert.ErrorIs(t, err, domain.ErrInvalidWebhookConfig)
	})
}

func TestWebhookParseConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing config yields empty struct", func(t *testing.T) {
		t.Parallel()

		hook := &domain.Webhook{}
		cfg, err := hook.ParseConfig()
		require.NoError(t, err)
		assert.Empty(t, cfg.TestIDs)
		assert.Empty(t, cfg.RunName)
	})

	t.Run("decodes test ids and run name", func(t *testing.T) {
		t.Parallel()

		testID := uuid.New()
		raw, err := json.Marshal(map[string]any{
			"test_ids": []uuid.UUID{testID},
			"run_name": "push build",
		})
		require.NoError(t, err)

		hook := &domain.Webhook{Config: raw}
		cfg, err := hook.ParseConfig()
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{testID}, cfg.TestIDs)
		assert.Equal(t, "push build", cfg.RunName)
	})
}

func TestNewDelivery(t *testing.T) {
	t.Parallel()

	webhookID := uuid.New()

	t.Run("extracts github-style ref and after", func(t *testing.T) {
		t.Parallel()

		payload := []byte(`{"ref":"refs/heads/main","after":"abc123def"}`)
		d := domain.NewDelivery(webhookID, payload)

		assert.Equal(t, domain.DeliveryStatusPending, d.Status)
		assert.Equal(t, "main", d.Branch)
		assert.Equal(t, "abc123def", d.Commit)
	})

	t.Run("prefers explicit branch and commit fields", func(t *testing.T) {
		t.Parallel()

		payload := []byte(`{"branch":"release/1.2","commit":"fff000","ref":"refs/heads/other"}`)
		d := domain.NewDelivery(webhookID, payload)

		assert.Equal(t, "release/1.2", d.Branch)
		assert.Equal(t, "fff000", d.Commit)
	})

	t.Run("non-JSON payload yields empty metadata", func(t *testing.T) {
		t.Parallel()

		d := domain.NewDelivery(webhookID, []byte("plain text"))
		assert.Empty(t, d.Branch)
		assert.Empty(t, d.Commit)
		assert.Equal(t, []byte("plain text"), d.Payload)
	})
}
