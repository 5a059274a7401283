package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTest(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()

	t.Run("creates test with normalized tags", func(t *testing.T) {
		t.Parallel()

		test, err := domain.NewTest(projectID, nil, "checkout flow", domain.TestTypeCase,
			json.RawMessage(`{"steps":[]}`), []string{"smoke", "", "smoke", "checkout"})
		require.NoError(t, err)

		assert.Equal(t, []string{"smoke", "checkout"}, test.Tags)
		assert.False(t, test.Archived)
	})

	t.Run("rejects invalid content JSON", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewTest(projectID, nil, "t", domain.TestTypeCase,
			json.RawMessage(`{broken`), nil)
		assert.ErrorIs(t, err, domain.ErrInvalidTestContent)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewTest(projectID, nil, "t", domain.TestType("SCENARIO"), nil, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidTestType)
	})
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil stays empty", nil, []string{}},
		{"drops empties", []string{"", "a", ""}, []string{"a"}},
		{"dedupes preserving order", []string{"b", "a", "b", "a"}, []string{"b", "a"}},
		{"already normal", []string{"x", "y"}, []string{"x", "y"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, domain.NormalizeTags(tc.in))
		})
	}
}

func TestValidateSelfParent(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	test := &domain.Test{
		ID:        id,
		ProjectID: uuid.New(),
		ParentID:  &id,
		Name:      "t",
		Type:      domain.TestTypeFolder,
	}
	assert.ErrorIs(t, test.Validate(), domain.ErrTestParentSelf)
}
