package emaillogs

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-foundation/backend/pkg/queue"
	"github.com/brightpath-foundation/backend/pkg/response"
)

// Mailer re-enqueues email jobs. Satisfied by the Redis queue.
type Mailer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo   *Repository
	mailer Mailer
	logger *zap.Logger
}

// NewHandler creates an email logs handler. mailer may be nil when Redis is
// not configured; Resend then reports the queue as unavailable.
func NewHandler(repo *Repository, mailer Mailer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, mailer: mailer, logger: logger}
}

// ListByEvent handles GET /events/:id/emails (admin).
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event ID")
		return
	}
	logs, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}

// Resend handles POST /emails/:id/resend (admin). Re-enqueues the logged
// email with its original recipient and subject.
func (h *Handler) Resend(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid email log ID")
		return
	}
	if h.mailer == nil {
		response.Internal(c, "email queue is not configured")
		return
	}

	el, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "email log not found")
		return
	}

	payload := queue.EmailPayload{
		EmailType:      el.EmailType,
		RecipientEmail: el.RecipientEmail,
		Subject:        el.Subject,
	}
	if el.EventID != nil {
		payload.EventID = *el.EventID
	}
	if el.SubmissionID != nil {
		payload.SubmissionID = *el.SubmissionID
	}
	if err := h.mailer.EnqueueEmail(c.Request.Context(), payload); err != nil {
		h.logger.Error("resend enqueue failed", zap.Error(err), zap.String("email_log_id", id.String()))
		response.Internal(c, "failed to queue email")
		return
	}
	response.OK(c, gin.H{"message": "resend queued"})
}
