package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/api"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/mocks"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminFixture(t *testing.T) (*api.AdminHandler, *mocks.UserStore, *domain.User) {
	t.Helper()

	users := mocks.NewUserStore()
	handler := api.NewAdminHandler(users, mocks.NewConfigStore(), auth.NewBcryptHasher())

	admin, err := domain.NewUser("root@qaforge.dev", "Root", "password123")
	require.NoError(t, err)
	admin.Role = domain.UserRoleAdmin
	require.NoError(t, users.Create(context.Background(), admin))

	return handler, users, admin
}

func TestAdminCreateUser(t *testing.T) {
	t.Parallel()

	handler, users, admin := newAdminFixture(t)

	body := `{"email":"ops@qaforge.dev","displayName":"Ops","password":"password123","role":"ADMIN"}`
	req := withIdentity(httptest.NewRequest("POST", "/api/admin/users", strings.NewReader(body)), admin.ID)
	rec := httptest.NewRecorder()
	handler.CreateUser(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	created, err := users.GetByEmail(context.Background(), "ops@qaforge.dev")
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleAdmin, created.Role)
	assert.NotEqual(t, "password123", created.HashedPassword)
}

func TestAdminUpdateUserSelfGuard(t *testing.T) {
	t.Parallel()

	handler, users, admin := newAdminFixture(t)

	updateUser := func(callerID, targetID uuid.UUID, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("PUT", "/api/admin/users/"+targetID.String(), strings.NewReader(body))
		req = withURLParams(withIdentity(req, callerID), map[string]string{"id": targetID.String()})
		rec := httptest.NewRecorder()
		handler.UpdateUser(rec, req)
		return rec
	}

	other, err := domain.NewUser("member@qaforge.dev", "Member", "password123")
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), other))

	t.Run("changing own role is refused with the dedicated code", func(t *testing.T) {
		rec := updateUser(admin.ID, admin.ID, `{"role":"USER"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, shared.CodeUnauthorized, env.Code)
		assert.Equal(t, api.MsgSelfTarget, env.Message)

		stored, err := users.GetByID(context.Background(), admin.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.UserRoleAdmin, stored.Role)
	})

	t.Run("deactivating own account is refused", func(t *testing.T) {
		rec := updateUser(admin.ID, admin.ID, `{"active":false}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("renaming yourself is fine", func(t *testing.T) {
		rec := updateUser(admin.ID, admin.ID, `{"displayName":"Head of QA"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("demoting someone else works", func(t *testing.T) {
		rec := updateUser(admin.ID, other.ID, `{"role":"GUEST","active":false}`)
		require.Equal(t, http.StatusOK, rec.Code)

		stored, err := users.GetByID(context.Background(), other.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.UserRoleGuest, stored.Role)
		assert.False(t, stored.Active)
	})
}

func TestAdminDeleteUser(t *testing.T) {
	t.Parallel()

	handler, users, admin := newAdminFixture(t)

	other, err := domain.NewUser("leaver@qaforge.dev", "Leaver", "password123")
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), other))

	deleteUser := func(targetID uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest("DELETE", "/api/admin/users/"+targetID.String(), nil)
		req = withURLParams(withIdentity(req, admin.ID), map[string]string{"id": targetID.String()})
		rec := httptest.NewRecorder()
		handler.DeleteUser(rec, req)
		return rec
	}

	t.Run("self-deletion is refused", func(t *testing.T) {
		rec := deleteUser(admin.ID)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, shared.CodeUnauthorized, decodeEnvelope(t, rec).Code)
	})

	t.Run("deleting another account works", func(t *testing.T) {
		require.Equal(t, http.StatusOK, deleteUser(other.ID).Code)
		_, err := users.GetByID(context.Background(), other.ID)
		assert.Error(t, err)
	})
}

func TestAdminConfig(t *testing.T) {
	t.Parallel()

	handler, _, admin := newAdminFixture(t)

	body := `{"key":"retention_days","value":"30"}`
	req := withIdentity(httptest.NewRequest("PUT", "/api/admin/config", strings.NewReader(body)), admin.ID)
	rec := httptest.NewRecorder()
	handler.UpsertConfig(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	listReq := withIdentity(httptest.NewRequest("GET", "/api/admin/config", nil), admin.ID)
	listRec := httptest.NewRecorder()
	handler.ListConfig(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)

	data, ok := decodeEnvelope(t, listRec).Data.([]interface{})
	require.True(t, ok)
	require.Len(t, data, 1)
	entry, ok := data[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "retention_days", entry["key"])
	assert.Equal(t, "30", entry["value"])
}
