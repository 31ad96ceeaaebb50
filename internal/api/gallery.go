// gallery.go implements the gallery endpoints. Image format comes from
// magic-number sniffing on upload, and the blob key carries the detected
// format as its extension, so serving can derive the content type from the
// key alone.
package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/modvault/modvault/internal/middleware"
	"github.com/modvault/modvault/internal/registry"
)

// contentTypeForKey maps a gallery blob key's extension to a MIME type. The
// extension was produced by the sniffer at upload time, so it is trusted.
func contentTypeForKey(key string) string {
	switch key[strings.LastIndex(key, ".")+1:] {
	case "png":
		return "image/png"
	case "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	case "ico":
		return "image/x-icon"
	case "avif":
		return "image/avif"
	}
	return "application/octet-stream"
}

// @Summary      Upload gallery image
// @Description  Adds an image to a project's gallery. Multipart fields: name, description, ordering, file. The format is detected from the bytes; unrecognized formats are rejected.
// @Tags         Gallery
// @Accept       multipart/form-data
// @Produce      json
// @Param        project  path  string  true  "Project id or slug"
// @Success      201  {object}  models.GalleryImage
// @Failure      400  {object}  map[string]string  "Missing field"
// @Failure      422  {object}  map[string]string  "Unrecognized image format"
// @Router       /api/v1/projects/{project}/gallery [post]
func (h *Handlers) UploadGalleryImage(c *gin.Context) {
	_, data, err := readUpload(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := registry.UploadGalleryImageInput{
		Name: c.PostForm("name"),
		Data: data,
	}
	if description := c.PostForm("description"); description != "" {
		input.Description = &description
	}
	if raw := c.PostForm("ordering"); raw != "" {
		ordering, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ordering must be an integer"})
			return
		}
		input.Ordering = &ordering
	}

	image, err := h.registry.UploadGalleryImage(c.Request.Context(), middleware.CurrentUser(c), c.Param("project"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, image)
}

// @Summary      List gallery
// @Description  Lists a project's gallery images in display order, with resolved file URLs.
// @Tags         Gallery
// @Produce      json
// @Param        project  path  string  true  "Project id or slug"
// @Success      200  {array}  models.PublicGalleryImage
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/projects/{project}/gallery [get]
func (h *Handlers) ListGallery(c *gin.Context) {
	images, err := h.registry.ListGallery(c.Request.Context(), middleware.CurrentUser(c), c.Param("project"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, images)
}

// @Summary      Update gallery image
// @Description  Patches an image's name, description, or ordering. The image bytes never change.
// @Tags         Gallery
// @Accept       json
// @Produce      json
// @Param        project  path  string                            true  "Project id or slug"
// @Param        image    path  string                            true  "Image id or name"
// @Param        patch    body  registry.UpdateGalleryImageInput  true  "Fields to change"
// @Success      200  {object}  models.GalleryImage
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/projects/{project}/gallery/{image} [patch]
func (h *Handlers) UpdateGalleryImage(c *gin.Context) {
	var input registry.UpdateGalleryImageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	image, err := h.registry.UpdateGalleryImage(c.Request.Context(), middleware.CurrentUser(c),
		c.Param("project"), c.Param("image"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, image)
}

// @Summary      Delete gallery image
// @Description  Deletes an image row. The blob is removed only when no other gallery row references it.
// @Tags         Gallery
// @Param        project  path  string  true  "Project id or slug"
// @Param        image    path  string  true  "Image id or name"
// @Success      204  "Deleted"
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/projects/{project}/gallery/{image} [delete]
func (h *Handlers) DeleteGalleryImage(c *gin.Context) {
	err := h.registry.DeleteGalleryImage(c.Request.Context(), middleware.CurrentUser(c),
		c.Param("project"), c.Param("image"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      Serve gallery file
// @Description  Streams a gallery image by its blob key. Keys not referenced by any gallery row are 404 even if the blob exists.
// @Tags         Gallery
// @Produce      image/png
// @Param        key  path  string  true  "Blob key ({sha1}.{format})"
// @Success      200  {file}  binary
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/projects/gallery/file/{key} [get]
func (h *Handlers) ServeGalleryFile(c *gin.Context) {
	key := c.Param("key")
	reader, err := h.registry.OpenGalleryFile(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Type", contentTypeForKey(key))
	c.Header("Cache-Control", "public, max-age=31536000, immutable") // content-addressed, bytes never change
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.logger.Warn("gallery file stream interrupted", "key", key, "error", err)
	}
}
