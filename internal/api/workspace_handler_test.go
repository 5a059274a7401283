package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/api"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/mocks"
	"github.com/qaforge/qaforge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withURLParams attaches chi route parameters the router would have resolved.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func newWorkspaceHandler() (*api.WorkspaceHandler, *mocks.WorkspaceStore) {
	workspaces := mocks.NewWorkspaceStore()
	guard := api.NewMemberGuard(workspaces, mocks.NewProjectStore())
	return api.NewWorkspaceHandler(workspaces, guard), workspaces
}

// seedWorkspace creates a workspace owned by ownerID directly in the store.
func seedWorkspace(t *testing.T, workspaces *mocks.WorkspaceStore, ownerID uuid.UUID) *domain.Workspace {
	t.Helper()
	ws, err := domain.NewWorkspace("team space", "")
	require.NoError(t, err)
	owner, err := domain.NewWorkspaceMember(ws.ID, ownerID, domain.MemberRoleOwner)
	require.NoError(t, err)
	require.NoError(t, workspaces.Create(context.Background(), ws, owner))
	return ws
}

func TestWorkspaceList(t *testing.T) {
	t.Parallel()

	handler, workspaces := newWorkspaceHandler()
	aliceID := uuid.New()
	bobID := uuid.New()
	aliceWS := seedWorkspace(t, workspaces, aliceID)
	bobWS := seedWorkspace(t, workspaces, bobID)

	list := func(callerID uuid.UUID) shared.Envelope {
		req := withIdentity(httptest.NewRequest("GET", "/api/workspaces", nil), callerID)
		rec := httptest.NewRecorder()
		handler.List(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		return decodeEnvelope(t, rec)
	}

	listedIDs := func(env shared.Envelope) []string {
		items, ok := env.Data.([]interface{})
		require.True(t, ok)
		ids := make([]string, 0, len(items))
		for _, item := range items {
			entry, ok := item.(map[string]interface{})
			require.True(t, ok)
			ids = append(ids, entry["id"].(string))
		}
		return ids
	}

	t.Run("each member sees only their own workspaces", func(t *testing.T) {
		aliceEnv := list(aliceID)
		assert.Equal(t, []string{aliceWS.ID.String()}, listedIDs(aliceEnv))
		require.NotNil(t, aliceEnv.Pagination)
		assert.Equal(t, 1, aliceEnv.Pagination.Total)

		bobEnv := list(bobID)
		assert.Equal(t, []string{bobWS.ID.String()}, listedIDs(bobEnv))
		assert.NotContains(t, listedIDs(bobEnv), aliceWS.ID.String())
	})

	t.Run("caller without memberships gets an empty page", func(t *testing.T) {
		env := list(uuid.New())
		assert.Empty(t, listedIDs(env))
		require.NotNil(t, env.Pagination)
		assert.Equal(t, 0, env.Pagination.Total)
	})
}

func TestWorkspaceCreate(t *testing.T) {
	t.Parallel()

	handler, workspaces := newWorkspaceHandler()
	creatorID := uuid.New()

	body := `{"name":"QA team","description":"shared space"}`
	req := withIdentity(httptest.NewRequest("POST", "/api/workspaces", strings.NewReader(body)), creatorID)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "工作区已创建", env.Message)

	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, string(domain.MemberRoleOwner), data["my_role"])

	wsID, err := uuid.Parse(data["id"].(string))
	require.NoError(t, err)
	member, err := workspaces.GetMember(context.Background(), wsID, creatorID)
	require.NoError(t, err)
	assert.Equal(t, domain.MemberRoleOwner, member.Role)
}

func TestWorkspaceGet(t *testing.T) {
	t.Parallel()

	handler, workspaces := newWorkspaceHandler()
	ownerID := uuid.New()
	ws := seedWorkspace(t, workspaces, ownerID)

	get := func(callerID uuid.UUID, wsID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/workspaces/"+wsID, nil)
		req = withURLParams(withIdentity(req, callerID), map[string]string{"id": wsID})
		rec := httptest.NewRecorder()
		handler.Get(rec, req)
		return rec
	}

	t.Run("member sees the workspace with their role", func(t *testing.T) {
		t.Parallel()

		rec := get(ownerID, ws.ID.String())
		require.Equal(t, http.StatusOK, rec.Code)
		data, ok := decodeEnvelope(t, rec).Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, string(domain.MemberRoleOwner), data["my_role"])
	})

	t.Run("non-member is forbidden, not told the workspace exists", func(t *testing.T) {
		t.Parallel()

		rec := get(uuid.New(), ws.ID.String())
		assert.Equal(t, http.StatusForbidden, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, shared.CodeForbidden, env.Code)
		assert.Equal(t, api.MsgForbidden, env.Message)
	})

	t.Run("malformed id is a validation failure", func(t *testing.T) {
		t.Parallel()

		rec := get(ownerID, "not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, api.MsgInvalidID, decodeEnvelope(t, rec).Message)
	})
}

func TestWorkspaceMembers(t *testing.T) {
	t.Parallel()

	handler, workspaces := newWorkspaceHandler()
	ownerID := uuid.New()
	ws := seedWorkspace(t, workspaces, ownerID)

	addMember := func(callerID, targetID uuid.UUID, role string) *httptest.ResponseRecorder {
		body := `{"userId":"` + targetID.String() + `","role":"` + role + `"}`
		req := httptest.NewRequest("POST", "/api/workspaces/"+ws.ID.String()+"/members", strings.NewReader(body))
		req = withURLParams(withIdentity(req, callerID), map[string]string{"id": ws.ID.String()})
		rec := httptest.NewRecorder()
		handler.AddMember(rec, req)
		return rec
	}

	viewerID := uuid.New()

	t.Run("owner can add members", func(t *testing.T) {
		rec := addMember(ownerID, viewerID, "VIEWER")
		require.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("adding the same member twice conflicts", func(t *testing.T) {
		rec := addMember(ownerID, viewerID, "MEMBER")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, api.MsgMemberExists, decodeEnvelope(t, rec).Message)
	})

	t.Run("viewer cannot add members", func(t *testing.T) {
		rec := addMember(viewerID, uuid.New(), "MEMBER")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown role fails validation", func(t *testing.T) {
		rec := addMember(ownerID, uuid.New(), "SUPERUSER")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWorkspaceRemoveMember(t *testing.T) {
	t.Parallel()

	handler, workspaces := newWorkspaceHandler()
	ownerID := uuid.New()
	ws := seedWorkspace(t, workspaces, ownerID)

	memberID := uuid.New()
	member, err := domain.NewWorkspaceMember(ws.ID, memberID, domain.MemberRoleMember)
	require.NoError(t, err)
	require.NoError(t, workspaces.AddMember(context.Background(), member))

	remove := func(callerID, targetID uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest("DELETE", "/api/workspaces/"+ws.ID.String()+"/members/"+targetID.String(), nil)
		req = withURLParams(withIdentity(req, callerID), map[string]string{
			"id":     ws.ID.String(),
			"userId": targetID.String(),
		})
		rec := httptest.NewRecorder()
		handler.RemoveMember(rec, req)
		return rec
	}

	t.Run("member may leave on their own", func(t *testing.T) {
		rec := remove(memberID, memberID)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("last owner cannot leave", func(t *testing.T) {
		rec := remove(ownerID, ownerID)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, api.MsgLastOwner, decodeEnvelope(t, rec).Message)
	})
}

func TestWorkspaceDelete(t *testing.T) {
	t.Parallel()

	handler, workspaces := newWorkspaceHandler()
	ownerID := uuid.New()
	ws := seedWorkspace(t, workspaces, ownerID)

	adminID := uuid.New()
	admin, err := domain.NewWorkspaceMember(ws.ID, adminID, domain.MemberRoleAdmin)
	require.NoError(t, err)
	require.NoError(t, workspaces.AddMember(context.Background(), admin))

	del := func(callerID uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest("DELETE", "/api/workspaces/"+ws.ID.String(), nil)
		req = withURLParams(withIdentity(req, callerID), map[string]string{"id": ws.ID.String()})
		rec := httptest.NewRecorder()
		handler.Delete(rec, req)
		return rec
	}

	t.Run("workspace ADMIN may not delete the workspace", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, del(adminID).Code)
	})

	t.Run("owner deletes the workspace", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, del(ownerID).Code)
		_, err := workspaces.GetByID(context.Background(), ws.ID)
		assert.ErrorIs(t, err, store.ErrWorkspaceNotFound)
	})
}
