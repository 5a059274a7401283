package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/api"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedTest persists a test node under the given parent in the fixture project.
func seedTest(t *testing.T, fixture *projectFixture, tests *mocks.TestStore, name string, parentID *uuid.UUID, typ domain.TestType) *domain.Test {
	t.Helper()
	test, err := domain.NewTest(fixture.project.ID, parentID, name, typ, nil, nil)
	require.NoError(t, err)
	require.NoError(t, tests.Create(context.Background(), test))
	return test
}

func TestTestCreate(t *testing.T) {
	t.Parallel()

	fixture := newProjectFixture(t)
	tests := mocks.NewTestStore()
	handler := api.NewTestHandler(tests, fixture.guard)

	create := func(body string) *httptest.ResponseRecorder {
		req := withIdentity(httptest.NewRequest("POST", "/api/tests", strings.NewReader(body)), fixture.ownerID)
		rec := httptest.NewRecorder()
		handler.Create(rec, req)
		return rec
	}

	t.Run("creates a case under a folder", func(t *testing.T) {
		folder := seedTest(t, fixture, tests, "suite folder", nil, domain.TestTypeFolder)

		body := `{"projectId":"` + fixture.project.ID.String() + `","parentId":"` + folder.ID.String() +
			`","name":"login happy path","type":"CASE","tags":["smoke","smoke","auth"]}`
		rec := create(body)
		require.Equal(t, http.StatusCreated, rec.Code)

		data, ok := decodeEnvelope(t, rec).Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, []interface{}{"smoke", "auth"}, data["tags"])
	})

	t.Run("parent from another project is rejected", func(t *testing.T) {
		otherProject, err := domain.NewProject(fixture.project.WorkspaceID, "other", "")
		require.NoError(t, err)
		require.NoError(t, fixture.projects.Create(context.Background(), otherProject))

		foreign, err := domain.NewTest(otherProject.ID, nil, "foreign folder", domain.TestTypeFolder, nil, nil)
		require.NoError(t, err)
		require.NoError(t, tests.Create(context.Background(), foreign))

		body := `{"projectId":"` + fixture.project.ID.String() + `","parentId":"` + foreign.ID.String() +
			`","name":"case","type":"CASE"}`
		assert.Equal(t, http.StatusBadRequest, create(body).Code)
	})

	t.Run("unknown parent is not found", func(t *testing.T) {
		body := `{"projectId":"` + fixture.project.ID.String() + `","parentId":"` + uuid.NewString() +
			`","name":"case","type":"CASE"}`
		assert.Equal(t, http.StatusNotFound, create(body).Code)
	})
}

func TestTestReparent(t *testing.T) {
	t.Parallel()

	fixture := newProjectFixture(t)
	tests := mocks.NewTestStore()
	handler := api.NewTestHandler(tests, fixture.guard)

	// root -> middle -> leaf
	root := seedTest(t, fixture, tests, "root", nil, domain.TestTypeFolder)
	middle := seedTest(t, fixture, tests, "middle", &root.ID, domain.TestTypeFolder)
	leaf := seedTest(t, fixture, tests, "leaf", &middle.ID, domain.TestTypeFolder)

	reparent := func(nodeID, newParentID uuid.UUID) *httptest.ResponseRecorder {
		body := `{"parentId":"` + newParentID.String() + `"}`
		req := httptest.NewRequest("PUT", "/api/tests/"+nodeID.String(), strings.NewReader(body))
		req = withURLParams(withIdentity(req, fixture.ownerID), map[string]string{"id": nodeID.String()})
		rec := httptest.NewRecorder()
		handler.Update(rec, req)
		return rec
	}

	t.Run("moving under a descendant is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, reparent(root.ID, leaf.ID).Code)
	})

	t.Run("moving under itself is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, reparent(middle.ID, middle.ID).Code)
	})

	t.Run("moving a leaf to the root folder succeeds", func(t *testing.T) {
		rec := reparent(leaf.ID, root.ID)
		require.Equal(t, http.StatusOK, rec.Code)

		stored, err := tests.GetByID(context.Background(), leaf.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.ParentID)
		assert.Equal(t, root.ID, *stored.ParentID)
	})
}

func TestTestArchive(t *testing.T) {
	t.Parallel()

	fixture := newProjectFixture(t)
	tests := mocks.NewTestStore()
	handler := api.NewTestHandler(tests, fixture.guard)
	test := seedTest(t, fixture, tests, "flaky case", nil, domain.TestTypeCase)

	req := httptest.NewRequest("DELETE", "/api/tests/"+test.ID.String(), nil)
	req = withURLParams(withIdentity(req, fixture.ownerID), map[string]string{"id": test.ID.String()})
	rec := httptest.NewRecorder()
	handler.Delete(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	stored, err := tests.GetByID(context.Background(), test.ID)
	require.NoError(t, err)
	assert.True(t, stored.Archived)
}
