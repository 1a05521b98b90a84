package events

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-foundation/backend/internal/middleware"
	"github.com/brightpath-foundation/backend/internal/models"
	"github.com/brightpath-foundation/backend/pkg/response"
)

// FormLoader supplies an event's registration form for the public page
// payload. Satisfied by the formfields repository.
type FormLoader interface {
	GetFormByEventID(ctx context.Context, eventID uuid.UUID) (*models.RegistrationForm, error)
}

// EventRequest is the body for creating or updating an event.
type EventRequest struct {
	Title              string     `json:"title" binding:"required"`
	Slug               string     `json:"slug"`
	Description        string     `json:"description"`
	Location           string     `json:"location"`
	StartsAt           time.Time  `json:"starts_at" binding:"required"`
	EndsAt             *time.Time `json:"ends_at"`
	MaxAttendees       *int       `json:"max_attendees"`
	AllowRegistration  bool       `json:"allow_registration"`
	RegistrationClosed bool       `json:"registration_closed"`
	CoverImageURL      string     `json:"cover_image_url"`
}

// PublicEvent is the visitor-facing event payload: the event plus its live
// capacity and, when one is active, the dynamic registration form.
type PublicEvent struct {
	Event     models.Event             `json:"event"`
	SpotsLeft *int                     `json:"spots_left,omitempty"`
	Open      bool                     `json:"open"`
	Form      *models.RegistrationForm `json:"form,omitempty"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo   *Repository
	forms  FormLoader
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository, forms FormLoader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, forms: forms, logger: logger}
}

// Create handles POST /events (admin).
func (h *Handler) Create(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.MaxAttendees != nil && *req.MaxAttendees < 1 {
		response.BadRequest(c, "max_attendees must be at least 1")
		return
	}

	userID, _ := c.Get(middleware.ContextUserID)
	createdBy, _ := userID.(uuid.UUID)

	e := req.toEvent()
	e.CreatedBy = createdBy
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		if err == ErrSlugTaken {
			response.Conflict(c, "an event with this slug already exists")
			return
		}
		h.logger.Error("create event failed", zap.Error(err), zap.String("slug", e.Slug))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// Update handles PUT /events/:id (admin).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event ID")
		return
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.MaxAttendees != nil && *req.MaxAttendees < 1 {
		response.BadRequest(c, "max_attendees must be at least 1")
		return
	}

	existing, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}

	e := req.toEvent()
	e.ID = existing.ID
	e.CreatedBy = existing.CreatedBy
	if err := h.repo.Update(c.Request.Context(), e); err != nil {
		if err == ErrSlugTaken {
			response.Conflict(c, "an event with this slug already exists")
			return
		}
		h.logger.Error("update event failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to update event")
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /events/:id (admin).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event ID")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete event failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to delete event")
		return
	}
	response.NoContent(c)
}

// List handles GET /events. ?upcoming=true filters out past events.
func (h *Handler) List(c *gin.Context) {
	upcoming := c.Query("upcoming") == "true"
	list, err := h.repo.List(c.Request.Context(), upcoming)
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:id (admin).
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event ID")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, e)
}

// GetBySlug handles GET /public/events/:slug. Returns the event, remaining
// capacity and the active registration form so the page can render the wizard
// in one round trip. Inactive forms are omitted; the client then falls back
// to the fixed registration form.
func (h *Handler) GetBySlug(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	e, err := h.repo.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}

	cap, err := h.repo.Capacity(c.Request.Context(), e.ID)
	if err != nil {
		h.logger.Error("load capacity failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		response.Internal(c, "failed to load event")
		return
	}

	payload := PublicEvent{Event: *e, SpotsLeft: cap.SpotsLeft(), Open: cap.Open()}

	form, err := h.forms.GetFormByEventID(c.Request.Context(), e.ID)
	if err != nil {
		h.logger.Error("load registration form failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		response.Internal(c, "failed to load event")
		return
	}
	if form != nil && form.IsActive {
		payload.Form = form
	}
	response.OK(c, payload)
}

// Capacity handles GET /events/:id/capacity (admin dashboard widget).
func (h *Handler) Capacity(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event ID")
		return
	}
	cap, err := h.repo.Capacity(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, gin.H{
		"max_attendees": cap.MaxAttendees,
		"current_count": cap.CurrentCount,
		"spots_left":    cap.SpotsLeft(),
		"open":          cap.Open(),
	})
}

func (r *EventRequest) toEvent() *models.Event {
	slug := strings.TrimSpace(r.Slug)
	if slug == "" {
		slug = Slugify(r.Title)
	} else {
		slug = Slugify(slug)
	}
	return &models.Event{
		Title:              r.Title,
		Slug:               slug,
		Description:        r.Description,
		Location:           r.Location,
		StartsAt:           r.StartsAt,
		EndsAt:             r.EndsAt,
		MaxAttendees:       r.MaxAttendees,
		AllowRegistration:  r.AllowRegistration,
		RegistrationClosed: r.RegistrationClosed,
		CoverImageURL:      r.CoverImageURL,
	}
}
