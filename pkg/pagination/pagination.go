// Package pagination implements the shared page/limit request contract and
// the response metadata block used by all list endpoints.
package pagination

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params are the normalized pagination inputs of a list request.
type Params struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
}

// FromQuery parses pagination parameters from a URL query, clamping page to
// >= 1 and limit to [1, MaxLimit]. sortOrder is normalized to asc/desc.
func FromQuery(q url.Values) Params {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	order := strings.ToLower(q.Get("sortOrder"))
	if order != "asc" && order != "desc" {
		order = "desc"
	}

	return Params{
		Page:      page,
		Limit:     limit,
		SortBy:    q.Get("sortBy"),
		SortOrder: order,
		Search:    strings.TrimSpace(q.Get("search")),
	}
}

// Offset returns the row offset for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta is the pagination block returned alongside list data.
type Meta struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewMeta computes the response metadata for total matching rows.
func NewMeta(p Params, total int) Meta {
	pages := total / p.Limit
	if total%p.Limit != 0 {
		pages++
	}
	return Meta{
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: pages,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1,
	}
}
