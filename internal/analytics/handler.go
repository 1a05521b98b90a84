package analytics

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-foundation/backend/internal/models"
	"github.com/brightpath-foundation/backend/pkg/response"
)

// EventResolver maps an event id to its record. Satisfied by the events
// repository.
type EventResolver interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// RegistrationCounter reports how many registrations an event has.
type RegistrationCounter interface {
	CountByEvent(ctx context.Context, eventID uuid.UUID) (int, error)
}

// Handler handles GET /events/:id/analytics.
type Handler struct {
	repo   *Repository
	events EventResolver
	regs   RegistrationCounter
	logger *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(repo *Repository, events EventResolver, regs RegistrationCounter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, events: events, regs: regs, logger: logger}
}

// SummaryResponse is the admin dashboard funnel payload. ConversionRate is
// completed/started; nil until the form has been started at least once.
type SummaryResponse struct {
	Summary
	TotalRegistrations int      `json:"total_registrations"`
	ConversionRate     *float64 `json:"conversion_rate,omitempty"`
}

// GetByEvent handles GET /events/:id/analytics (admin).
func (h *Handler) GetByEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event ID")
		return
	}
	ctx := c.Request.Context()

	event, err := h.events.GetByID(ctx, id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}

	summary, err := h.repo.SummaryForSlug(ctx, event.Slug)
	if err != nil {
		h.logger.Error("load funnel summary failed", zap.Error(err), zap.String("event_slug", event.Slug))
		response.Internal(c, "failed to load analytics")
		return
	}

	total, err := h.regs.CountByEvent(ctx, id)
	if err != nil {
		response.Internal(c, "failed to load registration counts")
		return
	}

	out := SummaryResponse{Summary: *summary, TotalRegistrations: total}
	if summary.Started > 0 {
		conv := float64(summary.Completed) / float64(summary.Started)
		out.ConversionRate = &conv
	}
	response.OK(c, out)
}
