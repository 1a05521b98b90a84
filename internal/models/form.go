package models

import (
	"time"

	"github.com/google/uuid"
)

// FieldType identifies the kind of input a form field renders and validates as.
// The set is closed; the schema generator switches exhaustively over it.
type FieldType string

const (
	FieldText     FieldType = "TEXT"
	FieldTextarea FieldType = "TEXTAREA"
	FieldEmail    FieldType = "EMAIL"
	FieldPhone    FieldType = "PHONE"
	FieldNumber   FieldType = "NUMBER"
	FieldSelect   FieldType = "SELECT"
	FieldCheckbox FieldType = "CHECKBOX"
	FieldRadio    FieldType = "RADIO"
	FieldFile     FieldType = "FILE"
	FieldDate     FieldType = "DATE"
)

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldTextarea, FieldEmail, FieldPhone, FieldNumber,
		FieldSelect, FieldCheckbox, FieldRadio, FieldFile, FieldDate:
		return true
	}
	return false
}

// HasOptions reports whether the type carries an options list.
func (t FieldType) HasOptions() bool {
	return t == FieldSelect || t == FieldRadio
}

// Operator is a conditional-visibility comparison.
type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not_equals"
	OpContains  Operator = "contains"
	OpIsChecked Operator = "is_checked"
)

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpIsChecked:
		return true
	}
	return false
}

// ConditionalRule makes a field's visibility depend on another field's
// current value. Single hop only: the rule looks at the dependency's raw
// value and never cascades through the dependency's own visibility.
type ConditionalRule struct {
	DependsOnFieldID string   `json:"depends_on_field_id"`
	Operator         Operator `json:"operator"`
	Value            string   `json:"value,omitempty"`
}

// FieldDefinition is one admin-authored form input for an event's
// registration form.
type FieldDefinition struct {
	ID            uuid.UUID        `json:"id"`
	FormID        uuid.UUID        `json:"form_id"`
	Label         string           `json:"label"`
	Placeholder   string           `json:"placeholder,omitempty"`
	Type          FieldType        `json:"type"`
	Options       []string         `json:"options,omitempty"`
	Required      bool             `json:"required"`
	Order         int              `json:"order"`
	Step          int              `json:"step"`
	Conditional   *ConditionalRule `json:"conditional_logic,omitempty"`
	MaxFileSize   int64            `json:"max_file_size,omitempty"`  // bytes, FILE only
	AcceptedTypes string           `json:"accepted_types,omitempty"` // comma-separated MIME types / extensions, FILE only
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// RegistrationForm is the dynamic multi-step form attached to an event.
// When IsActive is false the public page falls back to the fixed legacy form.
type RegistrationForm struct {
	ID         uuid.UUID         `json:"id"`
	EventID    uuid.UUID         `json:"event_id"`
	IsActive   bool              `json:"is_active"`
	TotalSteps int               `json:"total_steps"`
	Fields     []FieldDefinition `json:"fields"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
