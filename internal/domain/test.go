package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TestType distinguishes the three node kinds of the test tree.
type TestType string

// Possible test types.
const (
	TestTypeCase   TestType = "CASE"
	TestTypeSuite  TestType = "SUITE"
	TestTypeFolder TestType = "FOLDER"
)

// Test-specific validation errors.
var (
	ErrEmptyTestID        = errors.New("test ID cannot be empty")
	ErrEmptyTestName      = errors.New("test name cannot be empty")
	ErrInvalidTestType    = errors.New("invalid test type")
	ErrInvalidTestContent = errors.New("test content must be valid JSON")
	ErrTestParentSelf     = errors.New("test cannot be its own parent")
)

// Test is a node in the per-project self-referential test tree. A CASE holds
// executable content; SUITE and FOLDER nodes group children. Content is kept
// as an opaque JSON payload, the execution runner interprets it.
//
// Tests are soft-deleted: Archived tests are excluded from listings but their
// executions and issue links remain intact.
type Test struct {
	ID        uuid.UUID       `json:"id"`
	ProjectID uuid.UUID       `json:"project_id"`
	ParentID  *uuid.UUID      `json:"parent_id,omitempty"`
	Name      string          `json:"name"`
	Type      TestType        `json:"type"`
	Content   json.RawMessage `json:"content,omitempty"`
	Tags      []string        `json:"tags"`
	Archived  bool            `json:"archived"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewTest creates a new Test node under the given project.
func NewTest(projectID uuid.UUID, parentID *uuid.UUID, name string, testType TestType, content json.RawMessage, tags []string) (*Test, error) {
	t := &Test{
		ID:        uuid.New(),
		ProjectID: projectID,
		ParentID:  parentID,
		Name:      name,
		Type:      testType,
		Content:   content,
		Tags:      NormalizeTags(tags),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate checks if the Test has valid data.
func (t *Test) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTestID
	}

	if t.ProjectID == uuid.Nil {
		return ErrEmptyProjectID
	}

	if t.Name == "" {
		return ErrEmptyTestName
	}

	switch t.Type {
	case TestTypeCase, TestTypeSuite, TestTypeFolder:
	default:
		return ErrInvalidTestType
	}

	if t.ParentID != nil && *t.ParentID == t.ID {
		return ErrTestParentSelf
	}

	if len(t.Content) > 0 {
		var js json.RawMessage
		if err := json.Unmarshal(t.Content, &js); err != nil {
			return ErrInvalidTestContent
		}
	}

	return nil
}

// NormalizeTags deduplicates tags preserving first-seen order and dropping
// empty strings, so tags behave as a set across storage round-trips.
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	return normalized
}
