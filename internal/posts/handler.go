package posts

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-foundation/backend/internal/events"
	"github.com/brightpath-foundation/backend/internal/middleware"
	"github.com/brightpath-foundation/backend/internal/models"
	"github.com/brightpath-foundation/backend/pkg/response"
)

// PostRequest is the body for creating or updating a post.
type PostRequest struct {
	Title         string `json:"title" binding:"required"`
	Slug          string `json:"slug"`
	Excerpt       string `json:"excerpt"`
	Body          string `json:"body"`
	CoverImageURL string `json:"cover_image_url"`
	Published     bool   `json:"published"`
}

// Handler handles blog post HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a posts handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /posts (admin/editor).
func (h *Handler) Create(c *gin.Context) {
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	userID, _ := c.Get(middleware.ContextUserID)
	createdBy, _ := userID.(uuid.UUID)

	p := req.toPost()
	p.CreatedBy = createdBy
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		if err == ErrSlugTaken {
			response.Conflict(c, "a post with this slug already exists")
			return
		}
		h.logger.Error("create post failed", zap.Error(err), zap.String("slug", p.Slug))
		response.Internal(c, "failed to create post")
		return
	}
	response.Created(c, p)
}

// Update handles PUT /posts/:id (admin/editor).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid post ID")
		return
	}
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	existing, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "post not found")
		return
	}

	p := req.toPost()
	p.ID = existing.ID
	p.CreatedBy = existing.CreatedBy
	if err := h.repo.Update(c.Request.Context(), p); err != nil {
		if err == ErrSlugTaken {
			response.Conflict(c, "a post with this slug already exists")
			return
		}
		h.logger.Error("update post failed", zap.Error(err), zap.String("post_id", id.String()))
		response.Internal(c, "failed to update post")
		return
	}
	response.OK(c, p)
}

// Delete handles DELETE /posts/:id (admin/editor).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid post ID")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete post")
		return
	}
	response.NoContent(c)
}

// List handles GET /posts (admin, drafts included).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context(), false)
	if err != nil {
		response.Internal(c, "failed to list posts")
		return
	}
	response.OK(c, list)
}

// ListPublished handles GET /public/posts.
func (h *Handler) ListPublished(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context(), true)
	if err != nil {
		response.Internal(c, "failed to list posts")
		return
	}
	response.OK(c, list)
}

// GetBySlug handles GET /public/posts/:slug. Drafts are invisible here.
func (h *Handler) GetBySlug(c *gin.Context) {
	p, err := h.repo.GetBySlug(c.Request.Context(), strings.TrimSpace(c.Param("slug")))
	if err != nil {
		response.NotFound(c, "post not found")
		return
	}
	response.OK(c, p)
}

// Get handles GET /posts/:id (admin).
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid post ID")
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "post not found")
		return
	}
	response.OK(c, p)
}

func (r *PostRequest) toPost() *models.Post {
	slug := strings.TrimSpace(r.Slug)
	if slug == "" {
		slug = events.Slugify(r.Title)
	} else {
		slug = events.Slugify(slug)
	}
	return &models.Post{
		Title:         r.Title,
		Slug:          slug,
		Excerpt:       r.Excerpt,
		Body:          r.Body,
		CoverImageURL: r.CoverImageURL,
		Published:     r.Published,
	}
}
