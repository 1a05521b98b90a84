package pages

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-foundation/backend/internal/events"
	"github.com/brightpath-foundation/backend/internal/models"
	"github.com/brightpath-foundation/backend/pkg/response"
)

// PageRequest is the body for PUT /pages/:slug.
type PageRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
}

// Handler handles static page HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a pages handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Upsert handles PUT /pages/:slug (admin/editor).
func (h *Handler) Upsert(c *gin.Context) {
	slug := events.Slugify(c.Param("slug"))
	if slug == "" {
		response.BadRequest(c, "invalid page slug")
		return
	}
	var req PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	p := &models.Page{Slug: slug, Title: req.Title, Body: req.Body}
	if err := h.repo.Upsert(c.Request.Context(), p); err != nil {
		h.logger.Error("upsert page failed", zap.Error(err), zap.String("slug", slug))
		response.Internal(c, "failed to save page")
		return
	}
	response.OK(c, p)
}

// List handles GET /pages (admin/editor).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list pages")
		return
	}
	response.OK(c, list)
}

// GetBySlug handles GET /public/pages/:slug.
func (h *Handler) GetBySlug(c *gin.Context) {
	p, err := h.repo.GetBySlug(c.Request.Context(), strings.TrimSpace(c.Param("slug")))
	if err != nil {
		response.NotFound(c, "page not found")
		return
	}
	response.OK(c, p)
}

// Delete handles DELETE /pages/:id (admin).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid page ID")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete page")
		return
	}
	response.NoContent(c)
}
