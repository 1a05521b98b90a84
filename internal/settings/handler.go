package settings

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brightpath-foundation/backend/pkg/response"
)

// SetRequest is the body for PUT /settings/:key.
type SetRequest struct {
	Value json.RawMessage `json:"value" binding:"required"`
}

// Handler handles site settings HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a settings handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Set handles PUT /settings/:key (admin).
func (h *Handler) Set(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		response.BadRequest(c, "setting key is required")
		return
	}
	var req SetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := h.repo.Set(c.Request.Context(), key, req.Value)
	if err != nil {
		h.logger.Error("set setting failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to save setting")
		return
	}
	response.OK(c, s)
}

// Get handles GET /public/settings/:key. Settings are site-wide and public
// (contact info, social links); anything secret does not belong here.
func (h *Handler) Get(c *gin.Context) {
	s, err := h.repo.Get(c.Request.Context(), strings.TrimSpace(c.Param("key")))
	if err != nil {
		response.NotFound(c, "setting not found")
		return
	}
	response.OK(c, s)
}

// List handles GET /settings (admin).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list settings")
		return
	}
	response.OK(c, list)
}
