package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the lifecycle state of a batch run.
type RunStatus string

// Possible run statuses.
const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusPassed    RunStatus = "PASSED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// ExecutionStatus represents the state of a single test execution.
type ExecutionStatus string

// Possible execution statuses.
const (
	ExecutionStatusPending ExecutionStatus = "PENDING"
	ExecutionStatusRunning ExecutionStatus = "RUNNING"
	ExecutionStatusPassed  ExecutionStatus = "PASSED"
	ExecutionStatusFailed  ExecutionStatus = "FAILED"
	ExecutionStatusSkipped ExecutionStatus = "SKIPPED"
	ExecutionStatusTimeout ExecutionStatus = "TIMEOUT"
)

// Run and Execution validation errors.
var (
	ErrEmptyRunID             = errors.New("run ID cannot be empty")
	ErrEmptyRunName           = errors.New("run name cannot be empty")
	ErrInvalidRunStatus       = errors.New("invalid run status")
	ErrRunWithoutTests        = errors.New("run must reference at least one test")
	ErrEmptyExecutionID       = errors.New("execution ID cannot be empty")
	ErrInvalidExecutionStatus = errors.New("invalid execution status")
)

// Run is one batch invocation of a set of tests. TotalCount is fixed at
// creation time and always equals the number of executions created with the
// run.
type Run struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Status      RunStatus  `json:"status"`
	TotalCount  int        `json:"total_count"`
	TriggeredBy *uuid.UUID `json:"triggered_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Execution is the per-test result record of a run. It is created PENDING
// and updated by the execution runner collaborator out of band.
type Execution struct {
	ID          uuid.UUID       `json:"id"`
	RunID       uuid.UUID       `json:"run_id"`
	TestID      uuid.UUID       `json:"test_id"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Logs        string          `json:"logs,omitempty"`
	Screenshot  string          `json:"screenshot,omitempty"`
	ErrorDetail json.RawMessage `json:"error_detail,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewRun creates a PENDING Run over the given test ids, with one PENDING
// Execution per test. The returned executions must be persisted in the same
// transaction as the run so TotalCount stays truthful.
func NewRun(projectID uuid.UUID, name, runType string, testIDs []uuid.UUID, triggeredBy *uuid.UUID) (*Run, []*Execution, error) {
	if len(testIDs) == 0 {
		return nil, nil, ErrRunWithoutTests
	}

	now := time.Now().UTC()
	run := &Run{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Name:        name,
		Type:        runType,
		Status:      RunStatusPending,
		TotalCount:  len(testIDs),
		TriggeredBy: triggeredBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := run.Validate(); err != nil {
		return nil, nil, err
	}

	executions := make([]*Execution, 0, len(testIDs))
	for _, testID := range testIDs {
		executions = append(executions, &Execution{
			ID:        uuid.New(),
			RunID:     run.ID,
			TestID:    testID,
			Status:    ExecutionStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	return run, executions, nil
}

// Validate checks if the Run has valid data.
func (r *Run) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyRunID
	}

	if r.ProjectID == uuid.Nil {
		return ErrEmptyProjectID
	}

	if r.Name == "" {
		return ErrEmptyRunName
	}

	switch r.Status {
	case RunStatusPending, RunStatusRunning, RunStatusPassed, RunStatusFailed, RunStatusCancelled:
	default:
		return ErrInvalidRunStatus
	}

	if r.TotalCount < 1 {
		return ErrRunWithoutTests
	}

	return nil
}

// Validate checks if the Execution has valid data.
func (e *Execution) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEmptyExecutionID
	}

	if e.RunID == uuid.Nil {
		return ErrEmptyRunID
	}

	if e.TestID == uuid.Nil {
		return ErrEmptyTestID
	}

	return ValidExecutionStatus(e.Status)
}

// ValidExecutionStatus reports whether s is a known execution status.
func ValidExecutionStatus(s ExecutionStatus) error {
	switch s {
	case ExecutionStatusPending, ExecutionStatusRunning, ExecutionStatusPassed,
		ExecutionStatusFailed, ExecutionStatusSkipped, ExecutionStatusTimeout:
		return nil
	default:
		return ErrInvalidExecutionStatus
	}
}

// Terminal reports whether the execution status is final.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusPassed, ExecutionStatusFailed, ExecutionStatusSkipped, ExecutionStatusTimeout:
		return true
	default:
		return false
	}
}
