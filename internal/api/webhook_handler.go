package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/qaforge/qaforge/internal/api/middleware"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/platform/logger"
	"github.com/qaforge/qaforge/internal/service"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/qaforge/qaforge/internal/store"
)

// maxIngestBody bounds inbound webhook payloads at 1 MiB.
const maxIngestBody = 1 << 20

// signatureHeader carries the HMAC of the raw request body on inbound
// webhook invocations.
const signatureHeader = "X-Hub-Signature-256"

// WebhookHandler handles webhook management and the public ingestion
// endpoint.
type WebhookHandler struct {
	webhooks store.WebhookStore
	launcher *service.RunLauncher
	guard    *MemberGuard
}

// NewWebhookHandler creates a new WebhookHandler with the given dependencies.
func NewWebhookHandler(webhooks store.WebhookStore, launcher *service.RunLauncher, guard *MemberGuard) *WebhookHandler {
	return &WebhookHandler{
		webhooks: webhooks,
		launcher: launcher,
		guard:    guard,
	}
}

// ListByProject handles GET /webhooks?projectId=...
func (h *WebhookHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	projectID, err := parseQueryID(r, "projectId")
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}
	if _, err := h.guard.RequireProjectMember(r.Context(), userID, projectID, false); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	params := shared.ParsePageParams(r)
	hooks, total, err := h.webhooks.ListByProject(r.Context(), projectID, params.Request())
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondList(w, r, hooks, params.Pagination(total), "")
}

// Create handles POST /webhooks. The generated inbound token is returned
// once, in full, in the create response.
func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	var req CreateWebhookRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if _, err := h.guard.RequireProjectMember(r.Context(), userID, req.ProjectID, true); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	hook, err := domain.NewWebhook(req.ProjectID, req.Name, req.Provider, req.Secret, req.Config)
	if err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if err := h.webhooks.Create(r.Context(), hook); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondCreated(w, r, hook, "Webhook 已创建")
}

// Get handles GET /webhooks/{id}.
func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	hook, ok := h.requireWebhook(w, r, false)
	if !ok {
		return
	}
	shared.RespondOK(w, r, hook, "")
}

// Update handles PUT /webhooks/{id}. The active flag goes through the
// conditional SetActive statement.
func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	hook, ok := h.requireWebhook(w, r, true)
	if !ok {
		return
	}

	var req UpdateWebhookRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if req.Name != nil {
		hook.Name = *req.Name
	}
	if req.Provider != nil {
		hook.Provider = *req.Provider
	}
	if req.Secret != nil {
		hook.Secret = *req.Secret
	}
	if req.Config != nil {
		hook.Config = req.Config
	}

	if err := h.webhooks.Update(r.Context(), hook); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	if req.Active != nil && *req.Active != hook.Active {
		if err := h.webhooks.SetActive(r.Context(), hook.ID, *req.Active); err != nil {
			RespondMappedError(w, r, err)
			return
		}
		hook.Active = *req.Active
	}

	shared.RespondOK(w, r, hook, "Webhook 已更新")
}

// Delete handles DELETE /webhooks/{id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	hook, ok := h.requireWebhook(w, r, true)
	if !ok {
		return
	}

	if err := h.webhooks.Delete(r.Context(), hook.ID); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, nil, "Webhook 已删除")
}

// ListDeliveries handles GET /webhooks/{id}/deliveries.
func (h *WebhookHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	hook, ok := h.requireWebhook(w, r, false)
	if !ok {
		return
	}

	params := shared.ParsePageParams(r)
	deliveries, total, err := h.webhooks.ListDeliveries(r.Context(), hook.ID, params.Request())
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondList(w, r, deliveries, params.Pagination(total), "")
}

// Ingest handles POST /webhooks/ingest/{token}: the public inbound endpoint.
// The webhook is matched by token; with a secret configured, the signature is
// verified over the raw body BEFORE anything is persisted. A verified
// invocation records a Delivery and, when the webhook config names test ids,
// launches a run.
func (h *WebhookHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), nil)

	token := chi.URLParam(r, "token")
	hook, err := h.webhooks.GetActiveByToken(r.Context(), token)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBody))
	if err != nil {
		shared.RespondError(w, r, http.StatusBadRequest, shared.CodeValidation, shared.MsgMalformedJSON)
		return
	}

	if hook.Secret != "" {
		if !verifySignature(hook.Secret, payload, r.Header.Get(signatureHeader)) {
			log.Warn("webhook signature verification failed", "webhook_id", hook.ID)
			shared.RespondError(w, r, http.StatusUnauthorized, shared.CodeUnauthorized, "签名校验失败")
			return
		}
	}

	delivery := domain.NewDelivery(hook.ID, payload)

	cfg, err := hook.ParseConfig()
	if err != nil {
		delivery.Status = domain.DeliveryStatusFailed
		delivery.Response = "invalid webhook config"
	} else if len(cfg.TestIDs) == 0 {
		// No tests configured: record the delivery and move on.
		delivery.Status = domain.DeliveryStatusSuccess
		delivery.Response = "no tests configured, delivery recorded"
	} else {
		runName := cfg.RunName
		if runName == "" {
			runName = fmt.Sprintf("%s webhook %s", hook.Name, time.Now().UTC().Format("2006-01-02 15:04"))
		}
		run, _, err := h.launcher.Launch(r.Context(), hook.ProjectID, runName, "WEBHOOK", cfg.TestIDs, nil)
		if err != nil {
			log.Error("failed to launch run from webhook", "error", err, "webhook_id", hook.ID)
			delivery.Status = domain.DeliveryStatusFailed
			delivery.Response = "run launch failed"
		} else {
			delivery.Status = domain.DeliveryStatusSuccess
			delivery.Response = fmt.Sprintf("run %s created with %d executions", run.ID, run.TotalCount)
			delivery.RunID = &run.ID
		}
	}

	if err := h.webhooks.CreateDelivery(r.Context(), delivery); err != nil {
		RespondMappedError(w, r, err)
		return
	}
	if err := h.webhooks.StampTriggered(r.Context(), hook.ID, delivery.CreatedAt); err != nil {
		log.Warn("failed to stamp webhook trigger time", "error", err, "webhook_id", hook.ID)
	}

	shared.RespondOK(w, r, delivery, "回调已处理")
}

// verifySignature checks the HMAC-SHA256 of the raw body against the header
// value, accepting both "sha256=<hex>" and bare hex. Comparison is
// constant-time.
func verifySignature(secret string, payload []byte, header string) bool {
	if header == "" {
		return false
	}
	provided := strings.TrimPrefix(header, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(provided)))
}

// requireWebhook resolves the addressed webhook and checks the caller's
// membership in its project's workspace.
func (h *WebhookHandler) requireWebhook(w http.ResponseWriter, r *http.Request, mutate bool) (*domain.Webhook, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return nil, false
	}
	hookID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	hook, err := h.webhooks.GetByID(r.Context(), hookID)
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	if _, err := h.guard.RequireProjectMember(r.Context(), userID, hook.ProjectID, mutate); err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	return hook, true
}
