// search.go implements the public search endpoint over the Typesense index.
// Facets arrive in the client grammar ("field:value", "field>=n"); visibility
// scoping is never client-supplied — it is derived from the caller's identity
// and appended server-side.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/modvault/modvault/internal/middleware"
	"github.com/modvault/modvault/internal/search"
)

// @Summary      Search projects
// @Description  Full-text project search with facets, sorting, and pagination. Anonymous callers see Public projects; authenticated callers additionally see their own; admins see everything. Results may briefly lag recent writes.
// @Tags         Search
// @Produce      json
// @Param        q         query  string  false  "Search text"
// @Param        facets    query  []string  false  "Facet filters, e.g. loaders:fabric or downloads>=100 (repeatable)"
// @Param        sort      query  string  false  "Sort: name | published | updated | downloads (default relevance)"
// @Param        order     query  string  false  "asc or desc (default desc)"
// @Param        page      query  int     false  "Page, 1-based (default 1)"
// @Param        per_page  query  int     false  "Results per page (default 25, max 200)"
// @Success      200  {object}  search.Results
// @Failure      400  {object}  map[string]string  "Unknown facet field or sort"
// @Router       /api/v1/search [get]
func (h *Handlers) Search(c *gin.Context) {
	facets, err := search.ParseFacets(c.QueryArray("facets"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sort, err := search.ParseSort(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode := search.SortDesc
	if c.Query("order") == string(search.SortAsc) {
		mode = search.SortAsc
	}

	page, _ := strconv.Atoi(c.Query("page"))

	// An absent per_page means the default; an explicit value (including 0)
	// is passed through and clamped to [1, 200] by the search layer.
	perPage := search.DefaultPerPage
	if raw := c.Query("per_page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			perPage = v
		}
	}

	query := search.Query{
		Text:    c.Query("q"),
		Facets:  facets,
		Sort:    sort,
		Mode:    mode,
		Page:    page,
		PerPage: perPage,
	}

	identity := search.Anonymous
	if user := middleware.CurrentUser(c); user != nil {
		identity = search.Identity{Authenticated: true, UserID: user.ID, Admin: user.Admin}
	}

	results, err := h.searcher.Search(c.Request.Context(), query, identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
