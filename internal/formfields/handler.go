package formfields

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-foundation/backend/internal/models"
	"github.com/brightpath-foundation/backend/pkg/response"
)

// FieldRequest is the body for creating or updating a field definition.
type FieldRequest struct {
	Label         string                  `json:"label" binding:"required"`
	Placeholder   string                  `json:"placeholder"`
	Type          string                  `json:"type" binding:"required"`
	Options       []string                `json:"options"`
	Required      bool                    `json:"required"`
	Step          int                     `json:"step" binding:"required,min=1"`
	Conditional   *models.ConditionalRule `json:"conditional"`
	MaxFileSize   int64                   `json:"max_file_size"`
	AcceptedTypes string                  `json:"accepted_types"`
}

// FormConfigRequest is the body for updating form settings.
type FormConfigRequest struct {
	IsActive   bool `json:"is_active"`
	TotalSteps int  `json:"total_steps" binding:"required,min=1"`
}

// ReorderRequest moves a field up or down within its step.
type ReorderRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

// Handler exposes admin endpoints for managing registration forms.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a form-fields handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// GetForm handles GET /events/:id/registration-form. Creates the form on
// first access so the admin panel always has something to edit.
func (h *Handler) GetForm(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event ID")
		return
	}
	form, err := h.repo.EnsureForm(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("load registration form failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to load registration form")
		return
	}
	response.OK(c, form)
}

// UpdateForm handles PUT /events/:id/registration-form. The step count can
// never drop below the highest step a field already sits on.
func (h *Handler) UpdateForm(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event ID")
		return
	}
	var req FormConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	form, err := h.repo.EnsureForm(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to load registration form")
		return
	}
	if min := MaxStep(form.Fields); req.TotalSteps < min {
		response.BadRequest(c, "total_steps cannot be lower than the last step that has fields")
		return
	}

	if err := h.repo.UpdateFormConfig(c.Request.Context(), form.ID, req.IsActive, req.TotalSteps); err != nil {
		h.logger.Error("update form config failed", zap.Error(err), zap.String("form_id", form.ID.String()))
		response.Internal(c, "failed to update registration form")
		return
	}
	form.IsActive = req.IsActive
	form.TotalSteps = req.TotalSteps
	response.OK(c, form)
}

// AddField handles POST /registration-forms/:formID/fields.
func (h *Handler) AddField(c *gin.Context) {
	formID, err := uuid.Parse(c.Param("formID"))
	if err != nil {
		response.BadRequest(c, "invalid form ID")
		return
	}
	var req FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	form, fields, err := h.loadForm(c, formID)
	if err != nil {
		return
	}

	def := req.toDefinition(formID)
	if err := ValidateDefinition(def, fields, form.TotalSteps); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.repo.AddField(c.Request.Context(), def); err != nil {
		h.logger.Error("add field failed", zap.Error(err), zap.String("form_id", formID.String()))
		response.Internal(c, "failed to add field")
		return
	}
	response.Created(c, def)
}

// UpdateField handles PUT /registration-forms/:formID/fields/:fieldID.
func (h *Handler) UpdateField(c *gin.Context) {
	formID, err := uuid.Parse(c.Param("formID"))
	if err != nil {
		response.BadRequest(c, "invalid form ID")
		return
	}
	fieldID, err := uuid.Parse(c.Param("fieldID"))
	if err != nil {
		response.BadRequest(c, "invalid field ID")
		return
	}
	var req FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	form, fields, err := h.loadForm(c, formID)
	if err != nil {
		return
	}

	def := req.toDefinition(formID)
	def.ID = fieldID
	others := fields[:0:0]
	found := false
	for _, f := range fields {
		if f.ID == fieldID {
			found = true
			def.Order = f.Order
			continue
		}
		others = append(others, f)
	}
	if !found {
		response.NotFound(c, "field not found")
		return
	}
	if err := ValidateDefinition(def, others, form.TotalSteps); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.repo.UpdateField(c.Request.Context(), def); err != nil {
		h.logger.Error("update field failed", zap.Error(err), zap.String("field_id", fieldID.String()))
		response.Internal(c, "failed to update field")
		return
	}
	response.OK(c, def)
}

// DeleteField handles DELETE /registration-forms/:formID/fields/:fieldID.
// Fields that other fields depend on cannot be removed until the dependent
// rules are cleared.
func (h *Handler) DeleteField(c *gin.Context) {
	formID, err := uuid.Parse(c.Param("formID"))
	if err != nil {
		response.BadRequest(c, "invalid form ID")
		return
	}
	fieldID, err := uuid.Parse(c.Param("fieldID"))
	if err != nil {
		response.BadRequest(c, "invalid field ID")
		return
	}

	_, fields, err := h.loadForm(c, formID)
	if err != nil {
		return
	}
	for _, f := range fields {
		if f.Conditional != nil && f.Conditional.DependsOnFieldID == fieldID.String() {
			response.BadRequest(c, "field is referenced by the conditional rule on \""+f.Label+"\"")
			return
		}
	}

	if err := h.repo.DeleteField(c.Request.Context(), fieldID); err != nil {
		h.logger.Error("delete field failed", zap.Error(err), zap.String("field_id", fieldID.String()))
		response.Internal(c, "failed to delete field")
		return
	}
	response.NoContent(c)
}

// ReorderField handles POST /registration-forms/:formID/fields/:fieldID/reorder.
func (h *Handler) ReorderField(c *gin.Context) {
	fieldID, err := uuid.Parse(c.Param("fieldID"))
	if err != nil {
		response.BadRequest(c, "invalid field ID")
		return
	}
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.Reorder(c.Request.Context(), fieldID, req.Direction); err != nil {
		h.logger.Error("reorder field failed", zap.Error(err), zap.String("field_id", fieldID.String()))
		response.Internal(c, "failed to reorder field")
		return
	}
	response.OK(c, gin.H{"moved": true})
}

// loadForm fetches a form and its fields, writing the error response itself
// so callers can just return on a non-nil error.
func (h *Handler) loadForm(c *gin.Context, formID uuid.UUID) (*models.RegistrationForm, []models.FieldDefinition, error) {
	form, err := h.repo.GetFormByID(c.Request.Context(), formID)
	if err != nil {
		response.NotFound(c, "registration form not found")
		return nil, nil, err
	}
	fields, err := h.repo.GetFields(c.Request.Context(), formID)
	if err != nil {
		response.Internal(c, "failed to load form fields")
		return nil, nil, err
	}
	return form, fields, nil
}

func (r *FieldRequest) toDefinition(formID uuid.UUID) *models.FieldDefinition {
	return &models.FieldDefinition{
		FormID:        formID,
		Label:         r.Label,
		Placeholder:   r.Placeholder,
		Type:          models.FieldType(r.Type),
		Options:       trimOptions(r.Options),
		Required:      r.Required,
		Step:          r.Step,
		Conditional:   r.Conditional,
		MaxFileSize:   r.MaxFileSize,
		AcceptedTypes: r.AcceptedTypes,
	}
}
