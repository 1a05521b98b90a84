package registrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-foundation/backend/internal/analytics"
	"github.com/brightpath-foundation/backend/internal/forms"
	"github.com/brightpath-foundation/backend/internal/models"
	"github.com/brightpath-foundation/backend/pkg/queue"
	"github.com/brightpath-foundation/backend/pkg/response"
	"github.com/brightpath-foundation/backend/pkg/storage"
)

// EventStore resolves events for the public registration endpoints.
// Satisfied by the events repository.
type EventStore interface {
	GetBySlug(ctx context.Context, slug string) (*models.Event, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// FormStore loads an event's registration form with its field definitions.
// Satisfied by the formfields repository.
type FormStore interface {
	GetFormByEventID(ctx context.Context, eventID uuid.UUID) (*models.RegistrationForm, error)
}

// Store persists registrations. Satisfied by Repository.
type Store interface {
	CreateGuarded(ctx context.Context, sub *models.Submission) error
	CreateLegacyGuarded(ctx context.Context, reg *models.LegacyRegistration) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Submission, error)
	ListLegacyByEvent(ctx context.Context, eventID uuid.UUID) ([]models.LegacyRegistration, error)
}

// Mailer enqueues confirmation emails. Satisfied by the Redis queue.
type Mailer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Uploader stores and serves field attachments. Satisfied by pkg/storage.S3.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64, publicRead bool) (string, error)
	PublicObjectURL(key string) string
	GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error)
	PresignExpire() time.Duration
	GetObjectStream(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// SubmitRequest is the body for POST /public/events/:slug/register.
// Responses map field IDs to the visitor's answers; FILE answers carry the
// FileValue returned by the attachment upload endpoint.
type SubmitRequest struct {
	Responses map[string]any `json:"responses" binding:"required"`
}

// LegacyRequest is the fixed registration form, used when an event has no
// active dynamic form.
type LegacyRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Notes    string `json:"notes"`
}

// TrackRequest is a client-reported funnel signal.
type TrackRequest struct {
	Signal       string `json:"signal" binding:"required"`
	Step         int    `json:"step"`
	ErrorMessage string `json:"error_message"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	store    Store
	events   EventStore
	formRepo FormStore
	mailer   Mailer
	uploader Uploader
	sink     analytics.Sink
	siteName string
	logger   *zap.Logger
}

// NewHandler creates a registrations handler. mailer and uploader may be nil
// when Redis or S3 are not configured; the matching features degrade.
func NewHandler(store Store, events EventStore, formRepo FormStore, mailer Mailer, uploader Uploader, sink analytics.Sink, siteName string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = analytics.NopSink{}
	}
	return &Handler{
		store: store, events: events, formRepo: formRepo,
		mailer: mailer, uploader: uploader, sink: sink,
		siteName: siteName, logger: logger,
	}
}

// Submit handles POST /public/events/:slug/register. The server never trusts
// the client's validation pass: field definitions are re-loaded, the schema
// is re-generated and every response, file constraints included, is
// re-checked before the capacity-guarded insert.
func (h *Handler) Submit(c *gin.Context) {
	ctx := c.Request.Context()
	event, err := h.events.GetBySlug(ctx, strings.TrimSpace(c.Param("slug")))
	if err != nil {
		h.fail(c, forms.ErrNotFound, nil)
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	form, err := h.formRepo.GetFormByEventID(ctx, event.ID)
	if err != nil {
		h.logger.Error("load form failed", zap.Error(err), zap.String("event_id", event.ID.String()))
		response.Internal(c, "failed to load registration form")
		return
	}
	if form == nil || !form.IsActive {
		h.fail(c, forms.ErrFormInactive, nil)
		return
	}

	values, fileErr := normalizeResponses(form.Fields, req.Responses)
	if fileErr != nil {
		h.trackFailure(ctx, event.Slug, fieldStep(form.Fields, fileErr.FieldID), fileErr.Message)
		h.fail(c, fileErr, nil)
		return
	}

	if fieldErrs := forms.Generate(form.Fields).Validate(values); len(fieldErrs) > 0 {
		ve := &forms.ValidationError{Fields: fieldErrs}
		h.trackFailure(ctx, event.Slug, fieldErrs[0].Step, ve.Error())
		h.fail(c, ve, fieldErrs)
		return
	}

	sub := &models.Submission{
		EventID:   event.ID,
		FormID:    form.ID,
		Email:     firstEmail(form.Fields, values),
		Responses: values,
	}
	if err := h.store.CreateGuarded(ctx, sub); err != nil {
		if forms.CodeFor(err) == forms.CodeInternal {
			h.logger.Error("create submission failed", zap.Error(err), zap.String("event_id", event.ID.String()))
		}
		h.trackFailure(ctx, event.Slug, form.TotalSteps, forms.UserMessage(err))
		h.fail(c, err, nil)
		return
	}

	h.sink.Record(ctx, models.AnalyticsEvent{
		EventSlug: event.Slug,
		Signal:    models.SignalFormCompleted,
		Step:      form.TotalSteps,
	})
	h.sendConfirmation(ctx, event, sub.ID, sub.Email)

	response.Created(c, sub)
}

// SubmitLegacy handles POST /public/events/:slug/register-legacy, the fixed
// fallback form for events without an active dynamic form.
func (h *Handler) SubmitLegacy(c *gin.Context) {
	ctx := c.Request.Context()
	event, err := h.events.GetBySlug(ctx, strings.TrimSpace(c.Param("slug")))
	if err != nil {
		h.fail(c, forms.ErrNotFound, nil)
		return
	}

	var req LegacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	reg := &models.LegacyRegistration{
		EventID:  event.ID,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Notes:    req.Notes,
	}
	if err := h.store.CreateLegacyGuarded(ctx, reg); err != nil {
		if forms.CodeFor(err) == forms.CodeInternal {
			h.logger.Error("create legacy registration failed", zap.Error(err), zap.String("event_id", event.ID.String()))
		}
		h.fail(c, err, nil)
		return
	}

	h.sendConfirmation(ctx, event, reg.ID, reg.Email)
	response.Created(c, reg)
}

// UploadAttachment handles POST /public/events/:slug/attachments. Multipart
// with "file" plus a "field_id" form value. The file is validated against
// the field's constraints and stored; the returned FileValue goes into the
// submission's responses.
func (h *Handler) UploadAttachment(c *gin.Context) {
	ctx := c.Request.Context()
	if h.uploader == nil {
		response.Internal(c, "file storage is not configured")
		return
	}
	event, err := h.events.GetBySlug(ctx, strings.TrimSpace(c.Param("slug")))
	if err != nil {
		h.fail(c, forms.ErrNotFound, nil)
		return
	}

	fieldID, err := uuid.Parse(c.PostForm("field_id"))
	if err != nil {
		response.BadRequest(c, "invalid field_id")
		return
	}

	form, err := h.formRepo.GetFormByEventID(ctx, event.ID)
	if err != nil || form == nil || !form.IsActive {
		h.fail(c, forms.ErrFormInactive, nil)
		return
	}
	var def *models.FieldDefinition
	for i := range form.Fields {
		if form.Fields[i].ID == fieldID {
			def = &form.Fields[i]
			break
		}
	}
	if def == nil || def.Type != models.FieldFile {
		response.BadRequest(c, "field_id does not refer to a file field on this form")
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	file := models.FileValue{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	}
	if err := forms.ValidateFile(*def, file); err != nil {
		h.fail(c, err, nil)
		return
	}

	src, err := header.Open()
	if err != nil {
		response.Internal(c, "failed to read upload")
		return
	}
	defer src.Close()

	key := storage.AttachmentKey(event.ID.String(), fieldID.String(), header.Filename)
	url, err := h.uploader.Upload(ctx, key, file.ContentType, src, header.Size, false)
	if err != nil {
		h.logger.Error("attachment upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to store file")
		return
	}
	file.StorageKey = key
	file.URL = url
	response.Created(c, file)
}

// Track handles POST /public/events/:slug/track. Signals outside the known
// set are dropped; this endpoint can never fail a visitor's session.
func (h *Handler) Track(c *gin.Context) {
	ctx := c.Request.Context()
	event, err := h.events.GetBySlug(ctx, strings.TrimSpace(c.Param("slug")))
	if err != nil {
		h.fail(c, forms.ErrNotFound, nil)
		return
	}

	var req TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	switch req.Signal {
	case models.SignalFormStarted, models.SignalFormFailed:
	default:
		response.BadRequest(c, "unknown signal")
		return
	}

	h.sink.Record(ctx, models.AnalyticsEvent{
		EventSlug:    event.Slug,
		Signal:       req.Signal,
		Step:         req.Step,
		ErrorMessage: req.ErrorMessage,
	})
	response.OK(c, gin.H{"recorded": true})
}

// List handles GET /events/:id/registrations (admin). Returns both dynamic
// submissions and fixed-form registrations.
func (h *Handler) List(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event ID")
		return
	}
	ctx := c.Request.Context()

	subs, err := h.store.ListByEvent(ctx, eventID)
	if err != nil {
		h.logger.Error("list submissions failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to list registrations")
		return
	}
	legacy, err := h.store.ListLegacyByEvent(ctx, eventID)
	if err != nil {
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, gin.H{
		"submissions": subs,
		"legacy":      legacy,
		"total":       len(subs) + len(legacy),
	})
}

// ExportCSV handles GET /events/:id/registrations/export (admin). Streams a
// CSV attachment of the event's dynamic submissions.
func (h *Handler) ExportCSV(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event ID")
		return
	}
	ctx := c.Request.Context()

	event, err := h.events.GetByID(ctx, eventID)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	form, err := h.formRepo.GetFormByEventID(ctx, eventID)
	if err != nil {
		response.Internal(c, "failed to load registration form")
		return
	}
	var fields []models.FieldDefinition
	if form != nil {
		fields = form.Fields
	}
	subs, err := h.store.ListByEvent(ctx, eventID)
	if err != nil {
		response.Internal(c, "failed to list registrations")
		return
	}

	filename := fmt.Sprintf("registrations-%s.csv", event.Slug)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)
	if err := WriteCSV(c.Writer, fields, subs); err != nil {
		h.logger.Error("csv export failed", zap.Error(err), zap.String("event_id", eventID.String()))
	}
}

// AttachmentURL handles GET /registrations/:subID/files/:fieldID (admin).
// Attachments are stored private, so the response carries a short-lived
// presigned URL. With ?download=true the object is proxied through the API
// instead, for admin networks that cannot reach the bucket directly.
func (h *Handler) AttachmentURL(c *gin.Context) {
	ctx := c.Request.Context()
	if h.uploader == nil {
		response.Internal(c, "file storage is not configured")
		return
	}
	subID, err := uuid.Parse(c.Param("subID"))
	if err != nil {
		response.BadRequest(c, "invalid submission ID")
		return
	}
	fieldID, err := uuid.Parse(c.Param("fieldID"))
	if err != nil {
		response.BadRequest(c, "invalid field ID")
		return
	}

	sub, err := h.store.GetByID(ctx, subID)
	if err != nil {
		response.NotFound(c, "submission not found")
		return
	}
	raw, ok := sub.Responses[fieldID.String()]
	if !ok || raw == nil {
		response.NotFound(c, "no file submitted for this field")
		return
	}
	file, err := decodeFileValue(raw)
	if err != nil || file.StorageKey == "" {
		response.NotFound(c, "no stored file for this field")
		return
	}

	if c.Query("download") == "true" {
		body, contentType, err := h.uploader.GetObjectStream(ctx, file.StorageKey)
		if err != nil {
			h.logger.Error("attachment stream failed", zap.Error(err), zap.String("key", file.StorageKey))
			response.Internal(c, "failed to fetch file")
			return
		}
		defer body.Close()
		if contentType == "" {
			contentType = file.ContentType
		}
		c.DataFromReader(http.StatusOK, file.Size, contentType, body, map[string]string{
			"Content-Disposition": `attachment; filename="` + file.Name + `"`,
		})
		return
	}

	expires := h.uploader.PresignExpire()
	url, err := h.uploader.GeneratePresignedDownloadURL(ctx, file.StorageKey, expires)
	if err != nil {
		h.logger.Error("attachment presign failed", zap.Error(err), zap.String("key", file.StorageKey))
		response.Internal(c, "failed to sign download URL")
		return
	}
	response.OK(c, gin.H{
		"url":        url,
		"filename":   file.Name,
		"expires_at": time.Now().Add(expires).UTC(),
	})
}

// fail maps a flow error to its HTTP status and stable code.
func (h *Handler) fail(c *gin.Context, err error, fields []forms.FieldError) {
	code := forms.CodeFor(err)
	status := http.StatusInternalServerError
	switch code {
	case forms.CodeValidationFailed, forms.CodeFileTooLarge, forms.CodeUnsupportedFileType:
		status = http.StatusUnprocessableEntity
	case forms.CodeCapacityExceeded, forms.CodeFormInactive:
		status = http.StatusConflict
	case forms.CodeNotFound:
		status = http.StatusNotFound
	}
	var payload any
	if fields != nil {
		payload = fields
	}
	response.Fail(c, status, string(code), forms.UserMessage(err), payload)
}

func (h *Handler) trackFailure(ctx context.Context, slug string, step int, msg string) {
	h.sink.Record(ctx, models.AnalyticsEvent{
		EventSlug:    slug,
		Signal:       models.SignalFormFailed,
		Step:         step,
		ErrorMessage: msg,
	})
}

func (h *Handler) sendConfirmation(ctx context.Context, event *models.Event, registrationID uuid.UUID, email string) {
	if h.mailer == nil || email == "" {
		return
	}
	payload := queue.EmailPayload{
		EmailType:      models.EmailTypeRegistrationConfirmation,
		EventID:        event.ID,
		SubmissionID:   registrationID,
		RecipientEmail: email,
		Subject:        fmt.Sprintf("You're registered for %s", event.Title),
		BodyHTML: fmt.Sprintf(
			"<p>Thank you for registering for <strong>%s</strong>.</p><p>%s<br>%s</p><p>— %s</p>",
			event.Title, event.StartsAt.Format("January 2, 2006 at 3:04 PM"), event.Location, h.siteName,
		),
	}
	if err := h.mailer.EnqueueEmail(ctx, payload); err != nil {
		h.logger.Warn("confirmation email not enqueued", zap.Error(err), zap.String("event_id", event.ID.String()))
	}
}

// normalizeResponses decodes FILE answers into typed FileValue structs and
// re-runs file constraints server-side. Non-file values pass through as-is.
func normalizeResponses(fields []models.FieldDefinition, responses map[string]any) (map[string]any, *forms.FileError) {
	values := make(map[string]any, len(responses))
	for k, v := range responses {
		values[k] = v
	}
	for _, f := range fields {
		if f.Type != models.FieldFile {
			continue
		}
		raw, ok := values[f.ID.String()]
		if !ok || raw == nil {
			continue
		}
		file, err := decodeFileValue(raw)
		if err != nil {
			return nil, &forms.FileError{
				Code: forms.CodeUnsupportedFileType, FieldID: f.ID.String(),
				Message: "invalid file value",
			}
		}
		if err := forms.ValidateFile(f, file); err != nil {
			var fe *forms.FileError
			if errors.As(err, &fe) {
				return nil, fe
			}
			return nil, &forms.FileError{Code: forms.CodeUnsupportedFileType, FieldID: f.ID.String(), Message: err.Error()}
		}
		values[f.ID.String()] = file
	}
	return values, nil
}

func decodeFileValue(raw any) (models.FileValue, error) {
	switch v := raw.(type) {
	case models.FileValue:
		return v, nil
	case map[string]any:
		buf, err := json.Marshal(v)
		if err != nil {
			return models.FileValue{}, err
		}
		var file models.FileValue
		if err := json.Unmarshal(buf, &file); err != nil {
			return models.FileValue{}, err
		}
		return file, nil
	}
	return models.FileValue{}, fmt.Errorf("unexpected file value type %T", raw)
}

// firstEmail pulls the first EMAIL-typed response for the denormalized email
// column and the confirmation message.
func firstEmail(fields []models.FieldDefinition, values map[string]any) string {
	for _, f := range fields {
		if f.Type != models.FieldEmail {
			continue
		}
		if s, ok := values[f.ID.String()].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func fieldStep(fields []models.FieldDefinition, fieldID string) int {
	for _, f := range fields {
		if f.ID.String() == fieldID {
			return f.Step
		}
	}
	return 0
}
