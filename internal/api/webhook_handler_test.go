package api_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/api"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/mocks"
	"github.com/qaforge/qaforge/internal/service"
	"github.com/qaforge/qaforge/internal/store"
	"github.com/qaforge/qaforge/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookFixture struct {
	*projectFixture
	webhooks *mocks.WebhookStore
	tests    *mocks.TestStore
	runs     *mocks.RunStore
	handler  *api.WebhookHandler
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	fixture := newProjectFixture(t)
	webhooks := mocks.NewWebhookStore()
	tests := mocks.NewTestStore()
	runs := mocks.NewRunStore()
	launcher := service.NewRunLauncher(runs, tests, task.NewQueue(16, nil), nil)

	return &webhookFixture{
		projectFixture: fixture,
		webhooks:       webhooks,
		tests:          tests,
		runs:           runs,
		handler:        api.NewWebhookHandler(webhooks, launcher, fixture.guard),
	}
}

// seedWebhook persists a webhook for the fixture project.
func (f *webhookFixture) seedWebhook(t *testing.T, secret string, config json.RawMessage) *domain.Webhook {
	t.Helper()
	hook, err := domain.NewWebhook(f.project.ID, "ci hook", "github", secret, config)
	require.NoError(t, err)
	require.NoError(t, f.webhooks.Create(context.Background(), hook))
	return hook
}

// store20 is the default page window used when asserting store contents.
func store20() store.PageRequest {
	return store.PageRequest{Offset: 0, Limit: 20}
}

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (f *webhookFixture) ingest(token, payload, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/webhooks/ingest/"+token, strings.NewReader(payload))
	req = withURLParams(req, map[string]string{"token": token})
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	rec := httptest.NewRecorder()
	f.handler.Ingest(rec, req)
	return rec
}

func TestWebhookIngestSignature(t *testing.T) {
	t.Parallel()

	const secret = "hunter2-team-secret"
	payload := `{"ref":"refs/heads/main","after":"abc123"}`

	t.Run("valid signature records a delivery", func(t *testing.T) {
		t.Parallel()

		fixture := newWebhookFixture(t)
		hook := fixture.seedWebhook(t, secret, nil)

		rec := fixture.ingest(hook.Token, payload, signPayload(secret, []byte(payload)))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "回调已处理", decodeEnvelope(t, rec).Message)

		deliveries, total, err := fixture.webhooks.ListDeliveries(context.Background(), hook.ID, store20())
		require.NoError(t, err)
		require.Equal(t, 1, total)
		assert.Equal(t, domain.DeliveryStatusSuccess, deliveries[0].Status)
		assert.Equal(t, "main", deliveries[0].Branch)
		assert.Equal(t, "abc123", deliveries[0].Commit)

		stamped, err := fixture.webhooks.GetByID(context.Background(), hook.ID)
		require.NoError(t, err)
		assert.NotNil(t, stamped.LastTriggeredAt)
	})

	t.Run("bare hex signature is accepted", func(t *testing.T) {
		t.Parallel()

		fixture := newWebhookFixture(t)
		hook := fixture.seedWebhook(t, secret, nil)

		bare := strings.TrimPrefix(signPayload(secret, []byte(payload)), "sha256=")
		assert.Equal(t, http.StatusOK, fixture.ingest(hook.Token, payload, bare).Code)
	})

	t.Run("tampered payload is rejected with nothing persisted", func(t *testing.T) {
		t.Parallel()

		fixture := newWebhookFixture(t)
		hook := fixture.seedWebhook(t, secret, nil)

		tampered := strings.Replace(payload, "main", "evil", 1)
		rec := fixture.ingest(hook.Token, tampered, signPayload(secret, []byte(payload)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "签名校验失败", decodeEnvelope(t, rec).Message)

		_, total, err := fixture.webhooks.ListDeliveries(context.Background(), hook.ID, store20())
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("missing signature is rejected when a secret is set", func(t *testing.T) {
		t.Parallel()

		fixture := newWebhookFixture(t)
		hook := fixture.seedWebhook(t, secret, nil)
		assert.Equal(t, http.StatusUnauthorized, fixture.ingest(hook.Token, payload, "").Code)
	})

	t.Run("no secret means no signature check", func(t *testing.T) {
		t.Parallel()

		fixture := newWebhookFixture(t)
		hook := fixture.seedWebhook(t, "", nil)
		assert.Equal(t, http.StatusOK, fixture.ingest(hook.Token, payload, "").Code)
	})

	t.Run("unknown token is not found", func(t *testing.T) {
		t.Parallel()

		fixture := newWebhookFixture(t)
		assert.Equal(t, http.StatusNotFound, fixture.ingest("deadbeef", payload, "").Code)
	})

	t.Run("deactivated webhook stops ingesting", func(t *testing.T) {
		t.Parallel()

		fixture := newWebhookFixture(t)
		hook := fixture.seedWebhook(t, "", nil)
		require.NoError(t, fixture.webhooks.SetActive(context.Background(), hook.ID, false))
		assert.Equal(t, http.StatusNotFound, fixture.ingest(hook.Token, payload, "").Code)
	})
}

func TestWebhookIngestLaunchesRun(t *testing.T) {
	t.Parallel()

	fixture := newWebhookFixture(t)

	test, err := domain.NewTest(fixture.project.ID, nil, "smoke case", domain.TestTypeCase, nil, nil)
	require.NoError(t, err)
	require.NoError(t, fixture.tests.Create(context.Background(), test))

	config, err := json.Marshal(domain.WebhookConfig{TestIDs: []uuid.UUID{test.ID}, RunName: "push verification"})
	require.NoError(t, err)
	hook := fixture.seedWebhook(t, "", config)

	rec := fixture.ingest(hook.Token, `{"ref":"refs/heads/main"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	deliveries, total, err := fixture.webhooks.ListDeliveries(context.Background(), hook.ID, store20())
	require.NoError(t, err)
	require.Equal(t, 1, total)
	delivery := deliveries[0]
	assert.Equal(t, domain.DeliveryStatusSuccess, delivery.Status)
	require.NotNil(t, delivery.RunID)

	run, err := fixture.runs.GetByID(context.Background(), *delivery.RunID)
	require.NoError(t, err)
	assert.Equal(t, "push verification", run.Name)
	assert.Equal(t, "WEBHOOK", run.Type)
	assert.Equal(t, 1, run.TotalCount)
}

func TestWebhookIngestFailureModes(t *testing.T) {
	t.Parallel()

	t.Run("config naming a missing test records a failed delivery", func(t *testing.T) {
		t.Parallel()

		fixture := newWebhookFixture(t)
		config, err := json.Marshal(domain.WebhookConfig{TestIDs: []uuid.UUID{uuid.New()}})
		require.NoError(t, err)
		hook := fixture.seedWebhook(t, "", config)

		rec := fixture.ingest(hook.Token, `{}`, "")
		require.Equal(t, http.StatusOK, rec.Code)

		deliveries, _, err := fixture.webhooks.ListDeliveries(context.Background(), hook.ID, store20())
		require.NoError(t, err)
		require.Len(t, deliveries, 1)
		assert.Equal(t, domain.DeliveryStatusFailed, deliveries[0].Status)
		assert.Nil(t, deliveries[0].RunID)
	})

	t.Run("empty config records the delivery without a run", func(t *testing.T) {
		t.Parallel()

		fixture := newWebhookFixture(t)
		hook := fixture.seedWebhook(t, "", nil)

		rec := fixture.ingest(hook.Token, `{}`, "")
		require.Equal(t, http.StatusOK, rec.Code)

		deliveries, _, err := fixture.webhooks.ListDeliveries(context.Background(), hook.ID, store20())
		require.NoError(t, err)
		require.Len(t, deliveries, 1)
		assert.Equal(t, domain.DeliveryStatusSuccess, deliveries[0].Status)
		assert.Nil(t, deliveries[0].RunID)
	})
}

func TestWebhookUpdateKeepsToken(t *testing.T) {
	t.Parallel()

	fixture := newWebhookFixture(t)
	hook := fixture.seedWebhook(t, "", nil)

	body := `{"name":"renamed hook","active":false}`
	req := httptest.NewRequest("PUT", "/api/webhooks/"+hook.ID.String(), strings.NewReader(body))
	req = withURLParams(withIdentity(req, fixture.ownerID), map[string]string{"id": hook.ID.String()})
	rec := httptest.NewRecorder()
	fixture.handler.Update(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	stored, err := fixture.webhooks.GetByID(context.Background(), hook.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed hook", stored.Name)
	assert.Equal(t, hook.Token, stored.Token)
	assert.False(t, stored.Active)
}
