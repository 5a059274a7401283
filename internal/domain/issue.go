package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IssueSeverity represents the impact grade of an issue.
type IssueSeverity string

// Possible issue severities.
const (
	IssueSeverityLow      IssueSeverity = "LOW"
	IssueSeverityMedium   IssueSeverity = "MEDIUM"
	IssueSeverityHigh     IssueSeverity = "HIGH"
	IssueSeverityCritical IssueSeverity = "CRITICAL"
)

// IssueStatus represents the workflow state of an issue.
type IssueStatus string

// Possible issue statuses.
const (
	IssueStatusNew        IssueStatus = "NEW"
	IssueStatusInProgress IssueStatus = "IN_PROGRESS"
	IssueStatusFixed      IssueStatus = "FIXED"
	IssueStatusVerified   IssueStatus = "VERIFIED"
	IssueStatusClosed     IssueStatus = "CLOSED"
)

// Issue-specific validation errors.
var (
	ErrEmptyIssueID         = errors.New("issue ID cannot be empty")
	ErrEmptyIssueTitle      = errors.New("issue title cannot be empty")
	ErrInvalidIssueSeverity = errors.New("invalid issue severity")
	ErrInvalidIssueStatus   = errors.New("invalid issue status")
)

// issueTransitions is the closed-world adjacency table for issue status
// changes. A status absent from the map is invalid input; a target absent
// from the current status's set is a rejected transition. Same-state
// transitions are permitted as no-ops without consulting the table.
var issueTransitions = map[IssueStatus][]IssueStatus{
	IssueStatusNew:        {IssueStatusInProgress, IssueStatusClosed},
	IssueStatusInProgress: {IssueStatusFixed, IssueStatusClosed},
	IssueStatusFixed:      {IssueStatusVerified, IssueStatusInProgress},
	IssueStatusVerified:   {IssueStatusClosed, IssueStatusInProgress},
	IssueStatusClosed:     {IssueStatusNew},
}

// CanTransitionIssue validates a requested status change against the
// transition table. It returns nil for permitted transitions (including
// current == requested) and an error naming both states otherwise.
func CanTransitionIssue(current, requested IssueStatus) error {
	reachable, ok := issueTransitions[current]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidIssueStatus, current)
	}

	if _, known := issueTransitions[requested]; !known {
		return fmt.Errorf("%w: %s", ErrInvalidIssueStatus, requested)
	}

	if current == requested {
		return nil
	}

	for _, next := range reachable {
		if next == requested {
			return nil
		}
	}

	return fmt.Errorf("issue status cannot change from %s to %s", current, requested)
}

// Issue is a defect record, optionally linked to the test and execution that
// surfaced it. At most one open (non-CLOSED) issue may exist per execution.
type Issue struct {
	ID          uuid.UUID     `json:"id"`
	ProjectID   uuid.UUID     `json:"project_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Severity    IssueSeverity `json:"severity"`
	Status      IssueStatus   `json:"status"`
	ReporterID  uuid.UUID     `json:"reporter_id"`
	AssigneeID  *uuid.UUID    `json:"assignee_id,omitempty"`
	TestID      *uuid.UUID    `json:"test_id,omitempty"`
	ExecutionID *uuid.UUID    `json:"execution_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewIssue creates a NEW Issue reported by the given user.
func NewIssue(projectID, reporterID uuid.UUID, title, description string, severity IssueSeverity) (*Issue, error) {
	issue := &Issue{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Title:       title,
		Description: description,
		Severity:    severity,
		Status:      IssueStatusNew,
		ReporterID:  reporterID,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := issue.Validate(); err != nil {
		return nil, err
	}

	return issue, nil
}

// Validate checks if the Issue has valid data.
func (i *Issue) Validate() error {
	if i.ID == uuid.Nil {
		return ErrEmptyIssueID
	}

	if i.ProjectID == uuid.Nil {
		return ErrEmptyProjectID
	}

	if i.Title == "" {
		return ErrEmptyIssueTitle
	}

	if i.ReporterID == uuid.Nil {
		return ErrEmptyUserID
	}

	switch i.Severity {
	case IssueSeverityLow, IssueSeverityMedium, IssueSeverityHigh, IssueSeverityCritical:
	default:
		return ErrInvalidIssueSeverity
	}

	if _, ok := issueTransitions[i.Status]; !ok {
		return ErrInvalidIssueStatus
	}

	return nil
}
