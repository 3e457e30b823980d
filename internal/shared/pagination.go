package shared

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 200

	SortAsc  = "asc"
	SortDesc = "desc"
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultLimit
	}
	if page <= 0 {
		page = DefaultPage
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// ListFilters represents standard list endpoint filters.
type ListFilters struct {
	Page     int
	Limit    int
	Search   string
	SortBy   string
	SortDir  string
	IsActive *bool
}

// ParseListFilters reads page, limit, search, sort, dir and is_active from the query
// string, clamping out-of-range values to defaults.
func ParseListFilters(q url.Values) ListFilters {
	f := ListFilters{Page: DefaultPage, Limit: DefaultLimit, SortDir: SortAsc}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		f.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		f.Limit = min(v, MaxLimit)
	}
	f.Search = strings.TrimSpace(q.Get("search"))
	f.SortBy = q.Get("sort")
	if q.Get("dir") == SortDesc {
		f.SortDir = SortDesc
	}
	if v, err := strconv.ParseBool(q.Get("is_active")); err == nil {
		f.IsActive = &v
	}
	return f
}

// Offset returns the row offset of the current page.
func (f ListFilters) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// OrderBy returns an ORDER BY expression for f.SortBy restricted to allowed columns,
// falling back to fallback.
func (f ListFilters) OrderBy(fallback string, allowed ...string) string {
	dir := "ASC"
	if f.SortDir == SortDesc {
		dir = "DESC"
	}
	col := fallback
	for _, a := range allowed {
		if a == f.SortBy {
			col = a
			break
		}
	}
	return col + " " + dir
}
