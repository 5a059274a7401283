package shared_test

import (
	"net/http/httptest"
	"testing"

	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/stretchr/testify/assert"
)

func TestParsePageParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		url          string
		wantPage     int
		wantPageSize int
	}{
		{"defaults when absent", "/api/tests", 1, 20},
		{"explicit values", "/api/tests?page=3&pageSize=50", 3, 50},
		{"pageSize clamped to max", "/api/tests?pageSize=500", 1, 100},
		{"malformed page falls back", "/api/tests?page=abc", 1, 20},
		{"zero page falls back", "/api/tests?page=0", 1, 20},
		{"negative pageSize falls back", "/api/tests?pageSize=-5", 1, 20},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("GET", tc.url, nil)
			p := shared.ParsePageParams(r)
			assert.Equal(t, tc.wantPage, p.Page)
			assert.Equal(t, tc.wantPageSize, p.PageSize)
		})
	}
}

func TestPageParamsOffset(t *testing.T) {
	t.Parallel()

	p := shared.PageParams{Page: 3, PageSize: 20}
	assert.Equal(t, 40, p.Offset())
	assert.Equal(t, 20, p.Limit())

	req := p.Request()
	assert.Equal(t, 40, req.Offset)
	assert.Equal(t, 20, req.Limit)
}

func TestNewPagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		page, size     int
		total          int
		wantTotalPages int
	}{
		{"exact fit", 1, 20, 40, 2},
		{"partial last page", 1, 20, 41, 3},
		{"empty result", 1, 20, 0, 0},
		{"single item", 2, 10, 1, 1},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := shared.NewPagination(tc.page, tc.size, tc.total)
			assert.Equal(t, tc.wantTotalPages, p.TotalPages)
			assert.Equal(t, tc.total, p.Total)
			assert.Equal(t, tc.page, p.Page)
		})
	}
}
