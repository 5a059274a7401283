package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIssue(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()
	reporterID := uuid.New()

	t.Run("creates NEW issue", func(t *testing.T) {
		t.Parallel()

		issue, err := domain.NewIssue(projectID, reporterID, "login broken", "details", domain.IssueSeverityHigh)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, issue.ID)
		assert.Equal(t, domain.IssueStatusNew, issue.Status)
		assert.Equal(t, domain.IssueSeverityHigh, issue.Severity)
		assert.Equal(t, reporterID, issue.ReporterID)
	})

	t.Run("rejects empty title", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewIssue(projectID, reporterID, "", "", domain.IssueSeverityLow)
		assert.ErrorIs(t, err, domain.ErrEmptyIssueTitle)
	})

	t.Run("rejects unknown severity", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewIssue(projectID, reporterID, "t", "", domain.IssueSeverity("URGENT"))
		assert.ErrorIs(t, err, domain.ErrInvalidIssueSeverity)
	})
}

func TestCanTransitionIssue(t *testing.T) {
	t.Parallel()

	allowed := []struct {
		from, to domain.IssueStatus
	}{
		{domain.IssueStatusNew, domain.IssueStatusInProgress},
		{domain.IssueStatusNew, domain.IssueStatusClosed},
		{domain.IssueStatusInProgress, domain.IssueStatusFixed},
		{domain.IssueStatusInProgress, domain.IssueStatusClosed},
		{domain.IssueStatusFixed, domain.IssueStatusVerified},
		{domain.IssueStatusFixed, domain.IssueStatusInProgress},
		{domain.IssueStatusVerified, domain.IssueStatusClosed},
		{domain.IssueStatusVerified, domain.IssueStatusInProgress},
		{domain.IssueStatusClosed, domain.IssueStatusNew},
	}
	for _, tc := range allowed {
		assert.NoError(t, domain.CanTransitionIssue(tc.from, tc.to),
			"%s -> %s should be allowed", tc.from, tc.to)
	}

	rejected := []struct {
		from, to domain.IssueStatus
	}{
		{domain.IssueStatusNew, domain.IssueStatusFixed},
		{domain.IssueStatusNew, domain.IssueStatusVerified},
		{domain.IssueStatusInProgress, domain.IssueStatusVerified},
		{domain.IssueStatusFixed, domain.IssueStatusClosed},
		{domain.IssueStatusClosed, domain.IssueStatusFixed},
	}
	for _, tc := range rejected {
		err := domain.CanTransitionIssue(tc.from, tc.to)
		require.Error(t, err, "%s -> %s should be rejected", tc.from, tc.to)
		assert.Contains(t, err.Error(), string(tc.from))
		assert.Contains(t, err.Error(), string(tc.to))
	}

	t.Run("same state is a permitted no-op", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, domain.CanTransitionIssue(domain.IssueStatusFixed, domain.IssueStatusFixed))
	})

	t.Run("unknown states are invalid input", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, domain.CanTransitionIssue("BOGUS", domain.IssueStatusNew), domain.ErrInvalidIssueStatus)
		assert.ErrorIs(t, domain.CanTransitionIssue(domain.IssueStatusNew, "BOGUS"), domain.ErrInvalidIssueStatus)
	})
}
