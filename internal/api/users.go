// users.go implements account registration, user reads, and the token
// endpoints. Registration returns the account's first API token; further
// tokens can be issued and revoked from an authenticated session.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/modvault/modvault/internal/db/models"
	"github.com/modvault/modvault/internal/middleware"
	"github.com/modvault/modvault/internal/registry"
)

// @Summary      Register user
// @Description  Creates an account and issues its first API token. The token is shown exactly once; only its hash is stored.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        body  body  map[string]string  true  "username"
// @Success      201  {object}  map[string]interface{}  "user, token"
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/users [post]
func (h *Handlers) CreateUser(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	user := &models.User{Username: body.Username}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}

	token, err := h.resolver.Issue(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// @Summary      Get user
// @Description  Fetches a user by numeric id or username (case-insensitive).
// @Tags         Users
// @Produce      json
// @Param        user  path  string  true  "User id or username"
// @Success      200  {object}  models.User
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/users/{user} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	user, err := h.users.Resolve(c.Request.Context(), c.Param("user"))
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil {
		respondError(c, registry.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary      List user's projects
// @Description  Lists the projects a user authors, filtered to those the caller may see. A user's own list is served from cache when warm.
// @Tags         Users
// @Produce      json
// @Param        user  path  string  true  "User id or username"
// @Success      200  {array}  models.Project
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/users/{user}/projects [get]
func (h *Handlers) ListUserProjects(c *gin.Context) {
	target, err := h.users.Resolve(c.Request.Context(), c.Param("user"))
	if err != nil {
		respondError(c, err)
		return
	}
	if target == nil {
		respondError(c, registry.ErrNotFound)
		return
	}

	actor := middleware.CurrentUser(c)
	// Only the self-view is cacheable: what other callers see depends on
	// their own visibility rights.
	selfView := actor != nil && actor.ID == target.ID
	if selfView {
		if projects := h.cache.GetUserProjects(c.Request.Context(), target.ID); projects != nil {
			c.JSON(http.StatusOK, projects)
			return
		}
	}

	projects, err := h.registry.ListProjectsByAuthor(c.Request.Context(), actor, target.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	if selfView {
		h.cache.SetUserProjects(c.Request.Context(), target.ID, projects)
	}
	c.JSON(http.StatusOK, projects)
}

// @Summary      Current user
// @Description  Returns the account the presented token resolves to.
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  models.User
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

// @Summary      Issue API token
// @Description  Issues a fresh long-lived API token for the current user. The token is shown exactly once.
// @Tags         Auth
// @Produce      json
// @Success      201  {object}  map[string]string  "token"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/auth/tokens [post]
func (h *Handlers) IssueToken(c *gin.Context) {
	token, err := h.resolver.Issue(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

// @Summary      Revoke API token
// @Description  Revokes the API token presented in the request body. Revoking an already-revoked token succeeds.
// @Tags         Auth
// @Accept       json
// @Success      204  "Revoked"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/auth/tokens [delete]
func (h *Handlers) RevokeToken(c *gin.Context) {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	if err := h.resolver.Revoke(c.Request.Context(), body.Token); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      Create session
// @Description  Exchanges the presented credentials for a short-lived signed session token, avoiding a database lookup per request. Disabled unless a session secret is configured.
// @Tags         Auth
// @Produce      json
// @Success      201  {object}  map[string]interface{}  "token, expires_at"
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string  "Sessions disabled"
// @Router       /api/v1/auth/sessions [post]
func (h *Handlers) CreateSession(c *gin.Context) {
	token, expiresAt, err := h.resolver.IssueSession(middleware.CurrentUser(c).ID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session tokens are disabled"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

// invalidateAuthorCaches drops the cached project lists of the users named in
// an authorship change.
func (h *Handlers) invalidateAuthorCaches(c *gin.Context, userRef string) {
	if user, err := h.users.Resolve(c.Request.Context(), userRef); err == nil && user != nil {
		h.cache.InvalidateUserProjects(user.ID)
	}
	if actor := middleware.CurrentUser(c); actor != nil {
		h.cache.InvalidateUserProjects(actor.ID)
	}
}
