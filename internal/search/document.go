// document.go defines the flat document shape stored in the search engine and
// the projection from database rows into it.
package search

import (
	"sort"
	"strconv"

	"github.com/modvault/modvault/internal/db/models"
)

// ProjectDocument is the flat search index representation of a project. The
// id is the stringified database id (Typesense requires string primary keys);
// loaders and game_versions are aggregated across all versions, sorted and
// deduplicated, so facet filtering sees the union of what any version
// supports.
type ProjectDocument struct {
	ID           string   `json:"id"`
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Readme       string   `json:"readme"`
	Tags         []string `json:"tags"`
	Loaders      []string `json:"loaders"`
	GameVersions []string `json:"game_versions"`
	Authors      []string `json:"authors"`
	AuthorIDs    []int64  `json:"author_ids"`
	Versions     []string `json:"versions"`
	VersionIDs   []int64  `json:"version_ids"`
	Visibility   string   `json:"visibility"`
	Downloads    int64    `json:"downloads"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at"`
}

// BuildDocument projects a database read into its search document.
func BuildDocument(p models.ProjectProjection) ProjectDocument {
	doc := ProjectDocument{
		ID:           strconv.Itoa(p.Project.ID),
		Slug:         p.Project.Slug,
		Name:         p.Project.Name,
		Description:  p.Project.Description,
		Readme:       p.Project.Readme,
		Tags:         sortedCopy(p.Project.Tags),
		Loaders:      []string{},
		GameVersions: []string{},
		Authors:      []string{},
		AuthorIDs:    []int64{},
		Versions:     []string{},
		VersionIDs:   []int64{},
		Visibility:   p.Project.Visibility,
		Downloads:    int64(p.Project.Downloads),
		CreatedAt:    p.Project.CreatedAt.Unix(),
		UpdatedAt:    p.Project.UpdatedAt.Unix(),
	}

	for _, a := range p.Authors {
		doc.Authors = append(doc.Authors, a.Username)
		doc.AuthorIDs = append(doc.AuthorIDs, int64(a.ID))
	}

	loaders := map[string]struct{}{}
	gameVersions := map[string]struct{}{}
	for _, v := range p.Versions {
		doc.Versions = append(doc.Versions, v.VersionNumber)
		doc.VersionIDs = append(doc.VersionIDs, int64(v.ID))
		for _, l := range v.Loaders {
			loaders[l] = struct{}{}
		}
		for _, gv := range v.GameVersions {
			gameVersions[gv] = struct{}{}
		}
	}
	doc.Loaders = sortedKeys(loaders)
	doc.GameVersions = sortedKeys(gameVersions)

	return doc
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
