// moderation.go implements the moderation queue endpoints. Queue items are
// created lazily on first touch; only Approved projects are eligible for
// public search visibility.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modvault/modvault/internal/db/models"
	"github.com/modvault/modvault/internal/middleware"
)

// @Summary      Get moderation state
// @Description  Returns the project's moderation queue item, creating it in Pending state on first access. Visible to moderators and the project's authors.
// @Tags         Moderation
// @Produce      json
// @Param        project  path  string  true  "Project id or slug"
// @Success      200  {object}  models.ModerationQueueItem
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/projects/{project}/moderation [get]
func (h *Handlers) GetModerationItem(c *gin.Context) {
	item, err := h.registry.GetModerationItem(c.Request.Context(), middleware.CurrentUser(c), c.Param("project"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// @Summary      Set moderation status
// @Description  Moves a project to a new moderation status. Moderator-only.
// @Tags         Moderation
// @Accept       json
// @Produce      json
// @Param        project  path  string             true  "Project id or slug"
// @Param        body     body  map[string]string  true  "status: Pending | UnderReview | Approved | Denied"
// @Success      200  {object}  models.ModerationQueueItem
// @Failure      400  {object}  map[string]string  "Unknown status"
// @Failure      403  {object}  map[string]string
// @Router       /api/v1/projects/{project}/moderation/status [post]
func (h *Handlers) SetModerationStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item, err := h.registry.SetModerationStatus(c.Request.Context(), middleware.CurrentUser(c),
		c.Param("project"), body.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// @Summary      Assign moderator
// @Description  Assigns a moderator to a queue item, or clears the assignment when user_id is null. Moderator-only.
// @Tags         Moderation
// @Accept       json
// @Produce      json
// @Param        project  path  string          true  "Project id or slug"
// @Param        body     body  map[string]int  true  "user_id (null to clear)"
// @Success      200  {object}  models.ModerationQueueItem
// @Failure      403  {object}  map[string]string
// @Router       /api/v1/projects/{project}/moderation/assign [post]
func (h *Handlers) AssignModerator(c *gin.Context) {
	var body struct {
		UserID *int `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item, err := h.registry.AssignModerator(c.Request.Context(), middleware.CurrentUser(c),
		c.Param("project"), body.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// @Summary      List moderation queue
// @Description  Lists queue items by status (default Pending). Moderator-only.
// @Tags         Moderation
// @Produce      json
// @Param        status  query  string  false  "Queue status filter"  default(Pending)
// @Success      200  {array}  models.ModerationQueueItem
// @Failure      400  {object}  map[string]string  "Unknown status"
// @Failure      403  {object}  map[string]string
// @Router       /api/v1/moderation/queue [get]
func (h *Handlers) ListModerationQueue(c *gin.Context) {
	status := c.DefaultQuery("status", models.ModerationPending)
	items, err := h.registry.ListModerationQueue(c.Request.Context(), middleware.CurrentUser(c), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// @Summary      Add moderation comment
// @Description  Appends a comment to the project's moderation log. Authors and moderators may comment; the comment records whether its author held moderator rights.
// @Tags         Moderation
// @Accept       json
// @Produce      json
// @Param        project  path  string             true  "Project id or slug"
// @Param        body     body  map[string]string  true  "comment"
// @Success      201  {object}  models.ModerationComment
// @Failure      403  {object}  map[string]string
// @Router       /api/v1/projects/{project}/moderation/comments [post]
func (h *Handlers) AddModerationComment(c *gin.Context) {
	var body struct {
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	comment, err := h.registry.AddModerationComment(c.Request.Context(), middleware.CurrentUser(c),
		c.Param("project"), body.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// @Summary      List moderation comments
// @Description  Returns the project's moderation discussion log, oldest first.
// @Tags         Moderation
// @Produce      json
// @Param        project  path  string  true  "Project id or slug"
// @Success      200  {array}  models.ModerationComment
// @Failure      403  {object}  map[string]string
// @Router       /api/v1/projects/{project}/moderation/comments [get]
func (h *Handlers) ListModerationComments(c *gin.Context) {
	comments, err := h.registry.ListModerationComments(c.Request.Context(), middleware.CurrentUser(c), c.Param("project"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// @Summary      Rebuild search index
// @Description  Drops and rebuilds the search collection from the database. Admin-only; search results are partial while the rebuild runs.
// @Tags         Admin
// @Success      202  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /api/v1/admin/reindex [post]
func (h *Handlers) Reindex(c *gin.Context) {
	if err := h.registry.Reindex(c.Request.Context(), middleware.CurrentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "reindexed"})
}
