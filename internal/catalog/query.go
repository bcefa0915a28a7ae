package catalog

import (
	"slices"
	"strings"
)

// Pagination defaults for catalog listings.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// ToolQuery filters and paginates catalog listings.
type ToolQuery struct {
	Text          string
	CategoryID    int64
	MinMaturity   float64
	MinPopularity float64
	Frameworks    []string
	Languages     []string
	Page          int
	PerPage       int
}

// Normalize applies pagination defaults and drops blank list filters.
func (q ToolQuery) Normalize() ToolQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	q.PerPage = min(q.PerPage, MaxPerPage)
	q.Text = strings.TrimSpace(q.Text)
	q.Frameworks = compact(q.Frameworks)
	q.Languages = compact(q.Languages)
	return q
}

// Offset is the number of matches skipped before the current page.
func (q ToolQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// Matches evaluates the filter against t in memory. SQL backends push the
// same predicates into the query instead.
func (q ToolQuery) Matches(t Tool) bool {
	if q.CategoryID > 0 && t.CategoryID != q.CategoryID {
		return false
	}
	if q.MinMaturity > 0 && t.MaturityScore < q.MinMaturity {
		return false
	}
	if q.MinPopularity > 0 && t.PopularityScore < q.MinPopularity {
		return false
	}
	if q.Text != "" {
		needle := strings.ToLower(q.Text)
		if !strings.Contains(strings.ToLower(t.Name), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) &&
			!anyContains(t.Features, needle) {
			return false
		}
	}
	if len(q.Frameworks) > 0 && !anyOf(q.Frameworks, t.Frameworks) {
		return false
	}
	if len(q.Languages) > 0 && !anyOf(q.Languages, t.Languages) {
		return false
	}
	return true
}

// ToolPage is one page of a catalog listing.
type ToolPage struct {
	Tools   []Tool `json:"tools"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Total   int    `json:"total"`
	Pages   int    `json:"pages"`
	HasNext bool   `json:"has_next"`
	HasPrev bool   `json:"has_prev"`
}

// NewToolPage fills the derived pagination fields.
func NewToolPage(q ToolQuery, tools []Tool, total int) ToolPage {
	pages := 0
	if total > 0 {
		pages = (total + q.PerPage - 1) / q.PerPage
	}
	if tools == nil {
		tools = []Tool{}
	}
	return ToolPage{
		Tools:   tools,
		Page:    q.Page,
		PerPage: q.PerPage,
		Total:   total,
		Pages:   pages,
		HasNext: q.Page < pages,
		HasPrev: q.Page > 1,
	}
}

// Stats summarizes the catalog.
type Stats struct {
	TotalTools        int            `json:"total_tools"`
	TotalCategories   int            `json:"total_categories"`
	CategoryBreakdown map[string]int `json:"category_breakdown"`
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func anyContains(values []string, needle string) bool {
	return slices.ContainsFunc(values, func(v string) bool {
		return strings.Contains(strings.ToLower(v), needle)
	})
}

// anyOf reports whether any wanted value is a case-insensitive substring of
// one of have, mirroring the LIKE match the SQL backends run.
func anyOf(wanted, have []string) bool {
	for _, w := range wanted {
		if anyContains(have, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
