package shared

import (
	"net/http"
	"strconv"

	"github.com/qaforge/qaforge/internal/store"
)

// Pagination parameter bounds. Requests outside these bounds are clamped,
// never rejected: list endpoints favor availability over strict validation.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageParams holds normalized pagination query parameters.
type PageParams struct {
	Page     int
	PageSize int
}

// ParsePageParams reads page/pageSize from the query string. Malformed or
// out-of-range values fall back to defaults (page) or are clamped into
// [1, MaxPageSize] (pageSize).
func ParsePageParams(r *http.Request) PageParams {
	p := PageParams{Page: DefaultPage, PageSize: DefaultPageSize}

	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			p.Page = n
		}
	}

	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			p.PageSize = n
			if p.PageSize > MaxPageSize {
				p.PageSize = MaxPageSize
			}
		}
	}

	return p
}

// Offset returns the number of rows to skip for this page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit returns the number of rows to take for this page.
func (p PageParams) Limit() int {
	return p.PageSize
}

// Request converts the params into the store layer's page request.
func (p PageParams) Request() store.PageRequest {
	return store.PageRequest{Offset: p.Offset(), Limit: p.Limit()}
}

// Pagination builds the response pagination block for the given total.
func (p PageParams) Pagination(total int) *Pagination {
	return NewPagination(p.Page, p.PageSize, total)
}
