package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qaforge/qaforge/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	check := func(p api.Pinger) (int, map[string]interface{}) {
		rec := httptest.NewRecorder()
		api.NewHealthHandler(p).Check(rec, httptest.NewRequest("GET", "/api/health", nil))
		data, ok := decodeEnvelope(t, rec).Data.(map[string]interface{})
		require.True(t, ok)
		return rec.Code, data
	}

	t.Run("database reachable", func(t *testing.T) {
		code, data := check(fakePinger{})
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", data["status"])
		services, ok := data["services"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "healthy", services["database"])
	})

	t.Run("database unreachable still answers 200", func(t *testing.T) {
		code, data := check(fakePinger{err: errors.New("dial tcp: connection refused")})
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "unhealthy", data["status"])
		services, ok := data["services"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "unhealthy", services["database"])
	})
}
