// projects.go implements the project CRUD and authorship endpoints.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modvault/modvault/internal/middleware"
	"github.com/modvault/modvault/internal/registry"
)

// @Summary      Create project
// @Description  Creates a new project. The caller becomes the first author. Slugs are unique case-insensitively.
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        project  body  registry.CreateProjectInput  true  "Project to create"
// @Success      201  {object}  models.Project
// @Failure      400  {object}  map[string]string  "Missing or invalid field"
// @Failure      409  {object}  map[string]string  "Slug already taken"
// @Router       /api/v1/projects [post]
func (h *Handlers) CreateProject(c *gin.Context) {
	var input registry.CreateProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	actor := middleware.CurrentUser(c)
	project, err := h.registry.CreateProject(c.Request.Context(), actor, input)
	if err != nil {
		respondError(c, err)
		return
	}

	h.cache.InvalidateUserProjects(actor.ID)
	c.JSON(http.StatusCreated, project)
}

// @Summary      Get project
// @Description  Fetches a project with its authors. The reference is a numeric id or a slug (case-insensitive).
// @Tags         Projects
// @Produce      json
// @Param        project  path  string  true  "Project id or slug"
// @Success      200  {object}  models.ProjectData
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/projects/{project} [get]
func (h *Handlers) GetProject(c *gin.Context) {
	project, err := h.registry.GetProject(c.Request.Context(), middleware.CurrentUser(c), c.Param("project"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// @Summary      Update project
// @Description  Patches project metadata. Absent fields keep their values; the slug is immutable.
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        project  path  string                       true  "Project id or slug"
// @Param        patch    body  registry.UpdateProjectInput  true  "Fields to change"
// @Success      200  {object}  models.Project
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/projects/{project} [patch]
func (h *Handlers) UpdateProject(c *gin.Context) {
	var input registry.UpdateProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	actor := middleware.CurrentUser(c)
	project, err := h.registry.UpdateProject(c.Request.Context(), actor, c.Param("project"), input)
	if err != nil {
		respondError(c, err)
		return
	}

	h.cache.InvalidateUserProjects(actor.ID)
	c.JSON(http.StatusOK, project)
}

// @Summary      Delete project
// @Description  Deletes a project, its versions, files, gallery, and search document. Blobs still referenced by other projects survive.
// @Tags         Projects
// @Param        project  path  string  true  "Project id or slug"
// @Success      204  "Deleted"
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/projects/{project} [delete]
func (h *Handlers) DeleteProject(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if err := h.registry.DeleteProject(c.Request.Context(), actor, c.Param("project")); err != nil {
		respondError(c, err)
		return
	}

	h.cache.InvalidateUserProjects(actor.ID)
	c.Status(http.StatusNoContent)
}

// @Summary      Add author
// @Description  Grants a user authorship of a project. Idempotent.
// @Tags         Projects
// @Param        project  path  string  true  "Project id or slug"
// @Param        user     path  string  true  "User id or username"
// @Success      204  "Added"
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/projects/{project}/authors/{user} [post]
func (h *Handlers) AddAuthor(c *gin.Context) {
	err := h.registry.AddAuthor(c.Request.Context(), middleware.CurrentUser(c),
		c.Param("project"), c.Param("user"), h.resolveUser)
	if err != nil {
		respondError(c, err)
		return
	}

	h.invalidateAuthorCaches(c, c.Param("user"))
	c.Status(http.StatusNoContent)
}

// @Summary      Remove author
// @Description  Revokes a user's authorship. Removing the last author is rejected.
// @Tags         Projects
// @Param        project  path  string  true  "Project id or slug"
// @Param        user     path  string  true  "User id or username"
// @Success      204  "Removed"
// @Failure      400  {object}  map[string]string  "Would leave the project ownerless"
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/projects/{project}/authors/{user} [delete]
func (h *Handlers) RemoveAuthor(c *gin.Context) {
	err := h.registry.RemoveAuthor(c.Request.Context(), middleware.CurrentUser(c),
		c.Param("project"), c.Param("user"), h.resolveUser)
	if err != nil {
		respondError(c, err)
		return
	}

	h.invalidateAuthorCaches(c, c.Param("user"))
	c.Status(http.StatusNoContent)
}
