// search.go implements the query side: translate the request into Typesense
// parameters, apply the caller's visibility window, and map hits back to the
// public project shape.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/modvault/modvault/internal/db/models"
)

// Query is one search request after parsing and validation
type Query struct {
	Text    string
	Facets  []Facet
	Sort    Sort
	Mode    SortMode
	Page    int
	PerPage int
}

// Results is a page of search hits in the public project shape
type Results struct {
	Hits    []models.ProjectData `json:"hits"`
	Total   int                  `json:"total"`
	Page    int                  `json:"page"`
	PerPage int                  `json:"per_page"`
	Pages   int                  `json:"pages"`
}

const queryBy = "name,slug,description,readme,authors,tags"

// Search runs a query against the index scoped to the caller's identity.
// The visibility clause is always appended server-side; client facets can
// narrow the window but never widen it.
func (c *Client) Search(ctx context.Context, q Query, id Identity) (*Results, error) {
	page := clampPage(q.Page)
	perPage := clampPerPage(q.PerPage)

	facets := q.Facets
	if vf := visibilityFacet(id); vf != nil {
		facets = append(facets, *vf)
	}

	params := &api.SearchCollectionParams{
		Q:       pointer.String(q.Text),
		QueryBy: pointer.String(queryBy),
		Page:    pointer.Int(page),
		PerPage: pointer.Int(perPage),
	}
	if fb := filterBy(facets); fb != "" {
		params.FilterBy = pointer.String(fb)
	}
	if sb := sortBy(q.Sort, q.Mode); sb != "" {
		params.SortBy = pointer.String(sb)
	}

	result, err := c.ts.Collection(c.collection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}

	results := &Results{
		Hits:    []models.ProjectData{},
		Page:    page,
		PerPage: perPage,
	}
	if result.Found != nil {
		results.Total = int(*result.Found)
	}
	results.Pages = int(math.Ceil(float64(results.Total) / float64(perPage)))

	if result.Hits != nil {
		for _, hit := range *result.Hits {
			if hit.Document == nil {
				continue
			}
			data, err := hitToProject(*hit.Document)
			if err != nil {
				return nil, err
			}
			results.Hits = append(results.Hits, data)
		}
	}

	return results, nil
}

// hitToProject maps a raw hit document back to the public project shape.
// Index-internal fields (author_ids, version_ids) inform the author list but
// are not exposed as-is.
func hitToProject(raw map[string]interface{}) (models.ProjectData, error) {
	blob, err := json.Marshal(raw)
	if err != nil {
		return models.ProjectData{}, fmt.Errorf("failed to encode search hit: %w", err)
	}
	var doc ProjectDocument
	if err := json.Unmarshal(blob, &doc); err != nil {
		return models.ProjectData{}, fmt.Errorf("failed to decode search hit: %w", err)
	}

	id, err := strconv.Atoi(doc.ID)
	if err != nil {
		return models.ProjectData{}, fmt.Errorf("search hit has non-numeric id %q", doc.ID)
	}

	data := models.ProjectData{
		Project: models.Project{
			ID:          id,
			Slug:        doc.Slug,
			Name:        doc.Name,
			Readme:      doc.Readme,
			Description: doc.Description,
			Visibility:  doc.Visibility,
			Downloads:   int(doc.Downloads),
			Tags:        doc.Tags,
			CreatedAt:   time.Unix(doc.CreatedAt, 0).UTC(),
			UpdatedAt:   time.Unix(doc.UpdatedAt, 0).UTC(),
		},
		Authors: []models.User{},
	}
	for i, name := range doc.Authors {
		author := models.User{Username: name}
		if i < len(doc.AuthorIDs) {
			author.ID = int(doc.AuthorIDs[i])
		}
		data.Authors = append(data.Authors, author)
	}

	return data, nil
}
