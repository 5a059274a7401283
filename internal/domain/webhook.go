package domain

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus represents the processing outcome of one inbound webhook
// invocation.
type DeliveryStatus string

// Possible delivery statuses.
const (
	DeliveryStatusPending DeliveryStatus = "PENDING"
	DeliveryStatusSuccess DeliveryStatus = "SUCCESS"
	DeliveryStatusFailed  DeliveryStatus = "FAILED"
)

// Webhook-specific validation errors.
var (
	ErrEmptyWebhookID      = errors.New("webhook ID cannot be empty")
	ErrEmptyWebhookName    = errors.New("webhook name cannot be empty")
	ErrEmptyWebhookToken   = errors.New("webhook token cannot be empty")
	ErrEmptyDeliveryID     = errors.New("delivery ID cannot be empty")
	ErrInvalidWebhookConfig = errors.New("webhook config must be valid JSON")
)

// WebhookConfig is the persisted configuration payload of a webhook. TestIDs
// lists the tests a matched delivery should launch as a run; an empty list is
// accepted and simply records the delivery without creating executions.
type WebhookConfig struct {
	TestIDs []uuid.UUID `json:"test_ids,omitempty"`
	RunName string      `json:"run_name,omitempty"`
}

// Webhook is a registered inbound integration endpoint, addressed by its
// unique URL token and optionally protected by an HMAC secret.
type Webhook struct {
	ID              uuid.UUID       `json:"id"`
	ProjectID       uuid.UUID       `json:"project_id"`
	Name            string          `json:"name"`
	Provider        string          `json:"provider"`
	Token           string          `json:"token"`
	Secret          string          `json:"-"`
	Active          bool            `json:"active"`
	Config          json.RawMessage `json:"config,omitempty"`
	LastTriggeredAt *time.Time      `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Delivery records one inbound invocation of a webhook: the raw payload,
// metadata derived from it, and the processing outcome.
type Delivery struct {
	ID        uuid.UUID      `json:"id"`
	WebhookID uuid.UUID      `json:"webhook_id"`
	Status    DeliveryStatus `json:"status"`
	Payload   []byte         `json:"-"`
	Branch    string         `json:"branch,omitempty"`
	Commit    string         `json:"commit,omitempty"`
	Response  string         `json:"response,omitempty"`
	RunID     *uuid.UUID     `json:"run_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewWebhook creates a new active Webhook with a freshly generated URL token.
func NewWebhook(projectID uuid.UUID, name, provider, secret string, config json.RawMessage) (*Webhook, error) {
	token, err := generateWebhookToken()
	if err != nil {
		return nil, err
	}

	hook := &Webhook{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      name,
		Provider:  provider,
		Token:     token,
		Secret:    secret,
		Active:    true,
		Config:    config,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := hook.Validate(); err != nil {
		return nil, err
	}

	return hook, nil
}

// Validate checks if the Webhook has valid data.
func (w *Webhook) Validate() error {
	if w.ID == uuid.Nil {
		return ErrEmptyWebhookID
	}

	if w.ProjectID == uuid.Nil {
		return ErrEmptyProjectID
	}

	if w.Name == "" {
		return ErrEmptyWebhookName
	}

	if w.Token == "" {
		return ErrEmptyWebhookToken
	}

	if len(w.Config) > 0 {
		var js json.RawMessage
		if err := json.Unmarshal(w.Config, &js); err != nil {
			return ErrInvalidWebhookConfig
		}
	}

	return nil
}

// ParseConfig decodes the webhook's config payload. A missing config yields
// an empty WebhookConfig rather than an error.
func (w *Webhook) ParseConfig() (*WebhookConfig, error) {
	cfg := &WebhookConfig{}
	if len(w.Config) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(w.Config, cfg); err != nil {
		return nil, ErrInvalidWebhookConfig
	}
	return cfg, nil
}

// NewDelivery creates a PENDING Delivery for the given webhook and raw
// payload, extracting branch/commit metadata from common push-event fields.
func NewDelivery(webhookID uuid.UUID, payload []byte) *Delivery {
	d := &Delivery{
		ID:        uuid.New(),
		WebhookID: webhookID,
		Status:    DeliveryStatusPending,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	d.Branch, d.Commit = extractPushMetadata(payload)
	return d
}

// extractPushMetadata pulls branch and commit identifiers out of a push-event
// payload. It understands the common "ref"/"after" (GitHub style) and
// "branch"/"commit" field names; anything else yields empty strings.
func extractPushMetadata(payload []byte) (branch, commit string) {
	var event struct {
		Ref    string `json:"ref"`
		After  string `json:"after"`
		Branch string `json:"branch"`
		Commit string `json:"commit"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", ""
	}

	branch = event.Branch
	if branch == "" && event.Ref != "" {
		branch = event.Ref
		const refPrefix = "refs/heads/"
		if len(branch) > len(refPrefix) && branch[:len(refPrefix)] == refPrefix {
			branch = branch[len(refPrefix):]
		}
	}

	commit = event.Commit
	if commit == "" {
		commit = event.After
	}

	return branch, commit
}

// generateWebhookToken returns a 32-character random hex token used to
// address the webhook's inbound URL.
func generateWebhookToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
