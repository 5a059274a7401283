package api

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Request payloads. Validation is fail-fast: only the first violated rule is
// reported back to the client.

// RegisterRequest is the payload for POST /auth/register.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"required,max=100"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateWorkspaceRequest is the payload for POST /workspaces.
type CreateWorkspaceRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateWorkspaceRequest is the payload for PUT /workspaces/{id}. Absent
// fields keep their stored values.
type UpdateWorkspaceRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// AddMemberRequest is the payload for POST /workspaces/{id}/members.
type AddMemberRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
	Role   string    `json:"role" validate:"required,oneof=OWNER ADMIN MEMBER VIEWER"`
}

// UpdateMemberRoleRequest is the payload for PUT /workspaces/{id}/members/{userId}.
type UpdateMemberRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=OWNER ADMIN MEMBER VIEWER"`
}

// CreateProjectRequest is the payload for POST /workspaces/{id}/projects.
type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateProjectRequest is the payload for PUT /projects/{id}.
type UpdateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// CreatePageRequest is the payload for POST /projects/{id}/pages.
type CreatePageRequest struct {
	ParentID    *uuid.UUID `json:"parentId"`
	Kind        string     `json:"kind" validate:"required,oneof=SYSTEM PAGE"`
	Name        string     `json:"name" validate:"required,max=100"`
	Description string     `json:"description" validate:"max=500"`
	URL         string     `json:"url" validate:"max=2000"`
}

// UpdatePageRequest is the payload for PUT /pages/{id}.
type UpdatePageRequest struct {
	ParentID    *uuid.UUID `json:"parentId"`
	Name        *string    `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string    `json:"description" validate:"omitempty,max=500"`
	URL         *string    `json:"url" validate:"omitempty,max=2000"`
}

// CreateTestRequest is the payload for POST /tests.
type CreateTestRequest struct {
	ProjectID uuid.UUID       `json:"projectId" validate:"required"`
	ParentID  *uuid.UUID      `json:"parentId"`
	Name      string          `json:"name" validate:"required,max=200"`
	Type      string          `json:"type" validate:"required,oneof=CASE SUITE FOLDER"`
	Content   json.RawMessage `json:"content"`
	Tags      []string        `json:"tags"`
}

// UpdateTestRequest is the payload for PUT /tests/{id}.
type UpdateTestRequest struct {
	ParentID *uuid.UUID      `json:"parentId"`
	Name     *string         `json:"name" validate:"omitempty,min=1,max=200"`
	Type     *string         `json:"type" validate:"omitempty,oneof=CASE SUITE FOLDER"`
	Content  json.RawMessage `json:"content"`
	Tags     []string        `json:"tags"`
}

// CreateRunRequest is the payload for POST /runs.
type CreateRunRequest struct {
	ProjectID uuid.UUID   `json:"projectId" validate:"required"`
	Name      string      `json:"name" validate:"required,max=200"`
	Type      string      `json:"type" validate:"max=50"`
	TestIDs   []uuid.UUID `json:"testIds" validate:"required,min=1"`
}

// UpdateRunStatusRequest is the payload for PATCH /runs/{id}.
type UpdateRunStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING RUNNING PASSED FAILED CANCELLED"`
}

// UpdateExecutionRequest is the payload the execution runner posts back via
// PUT /executions/{id}.
type UpdateExecutionRequest struct {
	Status      string          `json:"status" validate:"required,oneof=PENDING RUNNING PASSED FAILED SKIPPED TIMEOUT"`
	Logs        string          `json:"logs"`
	Screenshot  string          `json:"screenshot"`
	ErrorDetail json.RawMessage `json:"errorDetail"`
}

// CreateIssueRequest is the payload for POST /issues.
type CreateIssueRequest struct {
	ProjectID   uuid.UUID  `json:"projectId" validate:"required"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Severity    string     `json:"severity" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	AssigneeID  *uuid.UUID `json:"assigneeId"`
	TestID      *uuid.UUID `json:"testId"`
	ExecutionID *uuid.UUID `json:"executionId"`
}

// UpdateIssueRequest is the payload for PUT /issues/{id}. Status changes go
// through PATCH /issues/{id}/status instead.
type UpdateIssueRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	Severity    *string    `json:"severity" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	AssigneeID  *uuid.UUID `json:"assigneeId"`
}

// UpdateIssueStatusRequest is the payload for PATCH /issues/{id}/status.
type UpdateIssueStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=NEW IN_PROGRESS FIXED VERIFIED CLOSED"`
}

// CreateIssueFromExecutionRequest is the payload for POST
// /executions/{id}/issues. All fields are optional; defaults are derived from
// the execution.
type CreateIssueFromExecutionRequest struct {
	Title       string `json:"title" validate:"max=200"`
	Description string `json:"description" validate:"max=5000"`
	Severity    string `json:"severity" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
}

// CreateKnowledgeRequest is the payload for POST /knowledge.
type CreateKnowledgeRequest struct {
	Title    string   `json:"title" validate:"required,max=200"`
	Content  string   `json:"content" validate:"required"`
	Category string   `json:"category" validate:"max=100"`
	Tags     []string `json:"tags"`
}

// UpdateKnowledgeRequest is the payload for PUT /knowledge/{id}.
type UpdateKnowledgeRequest struct {
	Title    *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Content  *string  `json:"content" validate:"omitempty,min=1"`
	Category *string  `json:"category" validate:"omitempty,max=100"`
	Tags     []string `json:"tags"`
}

// CreateWebhookRequest is the payload for POST /webhooks.
type CreateWebhookRequest struct {
	ProjectID uuid.UUID       `json:"projectId" validate:"required"`
	Name      string          `json:"name" validate:"required,max=100"`
	Provider  string          `json:"provider" validate:"max=50"`
	Secret    string          `json:"secret" validate:"max=200"`
	Config    json.RawMessage `json:"config"`
}

// UpdateWebhookRequest is the payload for PUT /webhooks/{id}. Active toggling
// is applied through a conditional update.
type UpdateWebhookRequest struct {
	Name     *string         `json:"name" validate:"omitempty,min=1,max=100"`
	Provider *string         `json:"provider" validate:"omitempty,max=50"`
	Secret   *string         `json:"secret" validate:"omitempty,max=200"`
	Config   json.RawMessage `json:"config"`
	Active   *bool           `json:"active"`
}

// CreateScheduleRequest is the payload for POST /schedules.
type CreateScheduleRequest struct {
	ProjectID uuid.UUID   `json:"projectId" validate:"required"`
	Name      string      `json:"name" validate:"required,max=100"`
	CronExpr  string      `json:"cronExpr" validate:"required"`
	TestIDs   []uuid.UUID `json:"testIds" validate:"required,min=1"`
}

// UpdateScheduleRequest is the payload for PUT /schedules/{id}.
type UpdateScheduleRequest struct {
	Name     *string     `json:"name" validate:"omitempty,min=1,max=100"`
	CronExpr *string     `json:"cronExpr"`
	TestIDs  []uuid.UUID `json:"testIds"`
	Active   *bool       `json:"active"`
}

// AdminCreateUserRequest is the payload for POST /admin/users.
type AdminCreateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"required,max=100"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	Role        string `json:"role" validate:"required,oneof=ADMIN USER GUEST"`
}

// AdminUpdateUserRequest is the payload for PUT /admin/users/{id}.
type AdminUpdateUserRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,min=1,max=100"`
	Role        *string `json:"role" validate:"omitempty,oneof=ADMIN USER GUEST"`
	Active      *bool   `json:"active"`
	Password    *string `json:"password" validate:"omitempty,min=8,max=72"`
}

// UpsertConfigRequest is the payload for PUT /admin/config.
type UpsertConfigRequest struct {
	Key   string `json:"key" validate:"required,max=100"`
	Value string `json:"value" validate:"required"`
}

// UpdateSettingsRequest is the payload for PUT /auth/settings.
type UpdateSettingsRequest struct {
	Theme              *string    `json:"theme" validate:"omitempty,oneof=light dark"`
	Language           *string    `json:"language" validate:"omitempty,max=20"`
	NotificationsOn    *bool      `json:"notificationsOn"`
	DefaultWorkspaceID *uuid.UUID `json:"defaultWorkspaceId"`
}

// UserResponse is the public projection of a user account.
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	Active      bool      `json:"active"`
}
