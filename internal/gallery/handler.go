package gallery

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-foundation/backend/internal/models"
	"github.com/brightpath-foundation/backend/pkg/response"
	"github.com/brightpath-foundation/backend/pkg/storage"
)

// Uploader stores gallery images. Satisfied by pkg/storage.S3.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64, publicRead bool) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// CaptionRequest is the body for PATCH /gallery/:id.
type CaptionRequest struct {
	Caption string `json:"caption"`
}

// Handler handles gallery HTTP endpoints.
type Handler struct {
	repo     *Repository
	uploader Uploader
	logger   *zap.Logger
}

// NewHandler creates a gallery handler.
func NewHandler(repo *Repository, uploader Uploader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, uploader: uploader, logger: logger}
}

// Upload handles POST /gallery (admin/editor). Multipart with "image" and an
// optional "caption". Only image types within the size cap are accepted.
func (h *Handler) Upload(c *gin.Context) {
	if h.uploader == nil {
		response.Internal(c, "file storage is not configured")
		return
	}
	header, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "image is required")
		return
	}
	if header.Size > storage.MaxGalleryFileSize {
		response.BadRequest(c, "image exceeds the 10MB limit")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !storage.ValidateImageType(contentType, header.Filename) {
		response.BadRequest(c, "unsupported image type")
		return
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(header.Filename)
	}

	src, err := header.Open()
	if err != nil {
		response.Internal(c, "failed to read upload")
		return
	}
	defer src.Close()

	item := &models.GalleryItem{
		ID:          uuid.New(),
		Caption:     c.PostForm("caption"),
		ContentType: contentType,
		FileSize:    header.Size,
	}
	item.StorageKey = storage.GalleryKey(item.ID.String(), header.Filename)

	url, err := h.uploader.Upload(c.Request.Context(), item.StorageKey, contentType, src, header.Size, true)
	if err != nil {
		h.logger.Error("gallery upload failed", zap.Error(err), zap.String("key", item.StorageKey))
		response.Internal(c, "failed to store image")
		return
	}
	item.URL = url

	if err := h.repo.Create(c.Request.Context(), item); err != nil {
		h.logger.Error("create gallery item failed", zap.Error(err), zap.String("item_id", item.ID.String()))
		response.Internal(c, "failed to save gallery item")
		return
	}
	response.Created(c, item)
}

// List handles GET /public/gallery.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list gallery")
		return
	}
	response.OK(c, list)
}

// UpdateCaption handles PATCH /gallery/:id (admin/editor).
func (h *Handler) UpdateCaption(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid gallery item ID")
		return
	}
	var req CaptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.UpdateCaption(c.Request.Context(), id, req.Caption); err != nil {
		response.Internal(c, "failed to update caption")
		return
	}
	response.OK(c, gin.H{"id": id, "caption": req.Caption})
}

// Delete handles DELETE /gallery/:id (admin/editor). Removes the S3 object
// first, then the row; a dangling row is worse than a dangling object.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid gallery item ID")
		return
	}
	item, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "gallery item not found")
		return
	}
	if h.uploader != nil {
		if err := h.uploader.DeleteObject(c.Request.Context(), item.StorageKey); err != nil {
			h.logger.Warn("delete gallery object failed", zap.Error(err), zap.String("key", item.StorageKey))
		}
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete gallery item")
		return
	}
	response.NoContent(c)
}
