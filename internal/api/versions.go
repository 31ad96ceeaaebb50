// versions.go implements the version publication, metadata, and download
// endpoints. Uploads are multipart: metadata fields alongside a single "file"
// part carrying the artifact bytes.
package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modvault/modvault/internal/middleware"
	"github.com/modvault/modvault/internal/registry"
)

// readUpload pulls the artifact bytes out of a multipart request.
func readUpload(c *gin.Context, field string) (string, []byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("missing %q file part", field)
	}

	f, err := fh.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return fh.Filename, data, nil
}

// @Summary      Publish version
// @Description  Publishes a new version with one artifact. Multipart fields: name, version_number (semver), changelog, loaders (repeatable), game_versions (repeatable), file_name, file. Byte-identical artifacts share one stored blob.
// @Tags         Versions
// @Accept       multipart/form-data
// @Produce      json
// @Param        project  path  string  true  "Project id or slug"
// @Success      201  {object}  models.ProjectVersionData
// @Failure      400  {object}  map[string]string  "Missing field"
// @Failure      422  {object}  map[string]string  "Invalid semver or artifact failed verification"
// @Router       /api/v1/projects/{project}/versions [post]
func (h *Handlers) UploadVersion(c *gin.Context) {
	partName, data, err := readUpload(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The explicit file_name field is the display name; the multipart part's
	// own filename is only a fallback.
	fileName := c.PostForm("file_name")
	if fileName == "" {
		fileName = partName
	}

	input := registry.UploadVersionInput{
		Name:          c.PostForm("name"),
		VersionNumber: c.PostForm("version_number"),
		Loaders:       c.PostFormArray("loaders"),
		GameVersions:  c.PostFormArray("game_versions"),
		FileName:      fileName,
		Data:          data,
	}
	if changelog := c.PostForm("changelog"); changelog != "" {
		input.Changelog = &changelog
	}

	version, err := h.registry.UploadVersion(c.Request.Context(), middleware.CurrentUser(c), c.Param("project"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, version)
}

// @Summary      List versions
// @Description  Lists a project's versions with their files, newest first.
// @Tags         Versions
// @Produce      json
// @Param        project  path  string  true  "Project id or slug"
// @Success      200  {array}  models.ProjectVersionData
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/projects/{project}/versions [get]
func (h *Handlers) ListVersions(c *gin.Context) {
	versions, err := h.registry.ListVersions(c.Request.Context(), middleware.CurrentUser(c), c.Param("project"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

// @Summary      Latest version
// @Description  Returns the version with the highest semver version number.
// @Tags         Versions
// @Produce      json
// @Param        project  path  string  true  "Project id or slug"
// @Success      200  {object}  models.ProjectVersionData
// @Failure      404  {object}  map[string]string  "Project not found or has no versions"
// @Router       /api/v1/projects/{project}/versions/latest [get]
func (h *Handlers) LatestVersion(c *gin.Context) {
	version, err := h.registry.LatestVersion(c.Request.Context(), middleware.CurrentUser(c), c.Param("project"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, version)
}

// @Summary      Get version
// @Description  Fetches one version with its files. The reference is a numeric id, a version name, or a version number (case-insensitive).
// @Tags         Versions
// @Produce      json
// @Param        project  path  string  true  "Project id or slug"
// @Param        version  path  string  true  "Version id, name, or number"
// @Success      200  {object}  models.ProjectVersionData
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/projects/{project}/versions/{version} [get]
func (h *Handlers) GetVersion(c *gin.Context) {
	version, err := h.registry.GetVersion(c.Request.Context(), middleware.CurrentUser(c),
		c.Param("project"), c.Param("version"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, version)
}

// @Summary      Update version
// @Description  Patches version metadata. Files are immutable; new bytes mean a new version.
// @Tags         Versions
// @Accept       json
// @Produce      json
// @Param        project  path  string                       true  "Project id or slug"
// @Param        version  path  string                       true  "Version id, name, or number"
// @Param        patch    body  registry.UpdateVersionInput  true  "Fields to change"
// @Success      200  {object}  models.ProjectVersion
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/projects/{project}/versions/{version} [patch]
func (h *Handlers) UpdateVersion(c *gin.Context) {
	var input registry.UpdateVersionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	version, err := h.registry.UpdateVersion(c.Request.Context(), middleware.CurrentUser(c),
		c.Param("project"), c.Param("version"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, version)
}

// @Summary      Delete version
// @Description  Deletes a version and its file rows. Each blob is removed only when no other file row references it.
// @Tags         Versions
// @Param        project  path  string  true  "Project id or slug"
// @Param        version  path  string  true  "Version id, name, or number"
// @Success      204  "Deleted"
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/projects/{project}/versions/{version} [delete]
func (h *Handlers) DeleteVersion(c *gin.Context) {
	err := h.registry.DeleteVersion(c.Request.Context(), middleware.CurrentUser(c),
		c.Param("project"), c.Param("version"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      Download file
// @Description  Streams a version file and increments the version and project download counters.
// @Tags         Versions
// @Produce      application/octet-stream
// @Param        project  path  string  true  "Project id or slug"
// @Param        version  path  string  true  "Version id, name, or number"
// @Param        file     path  string  true  "File id or file name"
// @Success      200  {file}  binary
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/projects/{project}/versions/{version}/files/{file}/download [get]
func (h *Handlers) DownloadVersionFile(c *gin.Context) {
	reader, file, err := h.registry.DownloadVersionFile(c.Request.Context(), middleware.CurrentUser(c),
		c.Param("project"), c.Param("version"), c.Param("file"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, file.Size, "application/octet-stream", reader, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename=%q`, file.FileName),
		"X-Checksum-Sha1":     file.SHA1,
	})
}
