package shared_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,max=10"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	t.Run("decodes valid body", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.co","name":"x"}`))
		var req sampleRequest
		require.NoError(t, shared.DecodeJSON(r, &req))
		assert.Equal(t, "a@b.co", req.Email)
	})

	t.Run("malformed body returns sentinel", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":`))
		var req sampleRequest
		assert.ErrorIs(t, shared.DecodeJSON(r, &req), shared.ErrMalformedJSON)
	})

	t.Run("empty body returns sentinel", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("POST", "/", strings.NewReader(""))
		var req sampleRequest
		assert.ErrorIs(t, shared.DecodeJSON(r, &req), shared.ErrMalformedJSON)
	})
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	t.Run("valid struct passes", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, shared.ValidateStruct(sampleRequest{Email: "a@b.co", Name: "ok"}))
	})

	t.Run("reports only the first violation", func(t *testing.T) {
		t.Parallel()

		err := shared.ValidateStruct(sampleRequest{Email: "not-an-email", Name: ""})
		require.Error(t, err)
		assert.Equal(t, "字段 Email 未通过 email 校验", err.Error())
	})

	t.Run("names the failed tag", func(t *testing.T) {
		t.Parallel()

		err := shared.ValidateStruct(sampleRequest{Email: "a@b.co", Name: "far too long a name"})
		require.Error(t, err)
		assert.Equal(t, "字段 Name 未通过 max 校验", err.Error())
	})
}

func TestDecodeAndValidate(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"","name":"x"}`))
	var req sampleRequest
	err := shared.DecodeAndValidate(r, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email")
}
