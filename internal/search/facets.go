// facets.go translates typed search facets into the Typesense filter_by and
// sort_by grammar. Facets arrive from clients as "field:value" (list match)
// or "field>=n" / "field<=n" (range bound) strings; visibility and author
// facets cannot be parsed from client input and exist only as the implicit
// clauses derived from the caller's identity.
package search

import (
	"fmt"
	"strconv"
	"strings"
)

// Facet is one filter clause. Constructed via ParseFacet or the typed
// helpers; the zero value is invalid.
type Facet struct {
	field string
	expr  string
}

// Public facet fields accepted from client input. The listed name maps to
// the document field it filters; ranges filter the mapped numeric field.
var publicFacetFields = map[string]string{
	"game_versions": "game_versions",
	"loaders":       "loaders",
	"tags":          "tags",
	"published":     "created_at",
	"updated":       "updated_at",
	"downloads":     "downloads",
}

var rangeFacetFields = map[string]bool{
	"published": true,
	"updated":   true,
	"downloads": true,
}

// ParseFacet parses one client-supplied facet string. Privileged fields
// (visibility, author) are rejected regardless of syntax: clients never get
// to pick their own visibility window.
func ParseFacet(raw string) (Facet, error) {
	for _, op := range []string{">=", "<="} {
		if name, value, ok := strings.Cut(raw, op); ok && !strings.Contains(name, ":") {
			name = strings.TrimSpace(name)
			field, known := publicFacetFields[name]
			if !known {
				return Facet{}, fmt.Errorf("unknown facet field: %s", name)
			}
			if !rangeFacetFields[name] {
				return Facet{}, fmt.Errorf("facet %s does not support ranges", name)
			}
			n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return Facet{}, fmt.Errorf("facet %s: invalid range bound %q", name, value)
			}
			return Facet{field: field, expr: fmt.Sprintf("%s:%s%d", field, op, n)}, nil
		}
	}

	name, value, ok := strings.Cut(raw, ":")
	if !ok || value == "" {
		return Facet{}, fmt.Errorf("malformed facet: %q", raw)
	}
	name = strings.TrimSpace(name)
	field, known := publicFacetFields[name]
	if !known {
		return Facet{}, fmt.Errorf("unknown facet field: %s", name)
	}
	if name == "published" || name == "updated" {
		return Facet{}, fmt.Errorf("facet %s only supports ranges", name)
	}

	values := strings.Split(value, ",")
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}
	return Facet{field: field, expr: fmt.Sprintf("%s:=[%s]", field, strings.Join(values, ","))}, nil
}

// ParseFacets parses a batch of client facet strings, failing on the first
// malformed or privileged entry.
func ParseFacets(raw []string) ([]Facet, error) {
	facets := make([]Facet, 0, len(raw))
	for _, r := range raw {
		f, err := ParseFacet(r)
		if err != nil {
			return nil, err
		}
		facets = append(facets, f)
	}
	return facets, nil
}

// Identity describes the caller for visibility scoping
type Identity struct {
	Authenticated bool
	UserID        int
	Admin         bool
}

// Anonymous is the identity of an unauthenticated caller
var Anonymous = Identity{}

// visibilityFacet derives the implicit visibility clause from the caller.
// Admins see everything; authenticated users additionally see projects they
// author; everyone else sees Public only.
func visibilityFacet(id Identity) *Facet {
	switch {
	case id.Admin:
		return nil
	case id.Authenticated:
		return &Facet{
			field: "visibility",
			expr:  fmt.Sprintf("(visibility:=Public || author_ids:=%d)", id.UserID),
		}
	default:
		return &Facet{field: "visibility", expr: "visibility:=Public"}
	}
}

// filterBy joins facet clauses into a Typesense filter_by expression
func filterBy(facets []Facet) string {
	exprs := make([]string, 0, len(facets))
	for _, f := range facets {
		exprs = append(exprs, f.expr)
	}
	return strings.Join(exprs, " && ")
}

// Sort selects the result ordering
type Sort string

// Supported sort orders. SortNone falls back to engine relevance.
const (
	SortNone      Sort = ""
	SortName      Sort = "name"
	SortPublished Sort = "published"
	SortUpdated   Sort = "updated"
	SortDownloads Sort = "downloads"
)

// SortMode is the direction of an explicit sort
type SortMode string

const (
	SortAsc  SortMode = "asc"
	SortDesc SortMode = "desc"
)

// ParseSort validates a client-supplied sort name
func ParseSort(raw string) (Sort, error) {
	switch Sort(raw) {
	case SortNone, SortName, SortPublished, SortUpdated, SortDownloads:
		return Sort(raw), nil
	}
	return SortNone, fmt.Errorf("unknown sort: %s", raw)
}

// sortBy translates the sort selection into Typesense sort_by syntax, or ""
// for relevance ordering.
func sortBy(sort Sort, mode SortMode) string {
	if mode != SortAsc {
		mode = SortDesc
	}

	switch sort {
	case SortName:
		return "name:" + string(mode)
	case SortPublished:
		return "created_at:" + string(mode)
	case SortUpdated:
		return "updated_at:" + string(mode)
	case SortDownloads:
		return "downloads:" + string(mode)
	}
	return ""
}

// Pagination bounds. PerPage requests outside [1, MaxPerPage] are clamped,
// not rejected.
const (
	DefaultPerPage = 25
	MaxPerPage     = 200
)

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// clampPerPage bounds a requested page size to [1, MaxPerPage]. Defaulting an
// absent per_page to DefaultPerPage happens where absence is still knowable
// (the API handler); an explicit 0 reaching here clamps to 1.
func clampPerPage(perPage int) int {
	if perPage < 1 {
		return 1
	}
	if perPage > MaxPerPage {
		return MaxPerPage
	}
	return perPage
}
