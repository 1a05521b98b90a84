package forms

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/brightpath-foundation/backend/internal/models"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Schema validates a response map against the field definitions it was
// generated from. Generation is deterministic and side-effect free: the same
// definitions always produce a schema with identical pass/fail behavior, so
// the rendering side and the submission boundary agree by construction.
type Schema struct {
	fields []models.FieldDefinition
}

// Generate builds a validation schema from field definitions. It never fails:
// malformed definitions (a SELECT without options, an unknown type) degrade
// to permissive rules rather than breaking the public page.
func Generate(fields []models.FieldDefinition) Schema {
	copied := make([]models.FieldDefinition, len(fields))
	copy(copied, fields)
	return Schema{fields: copied}
}

// Validate checks values against the schema and returns per-field errors.
// Fields hidden by their conditional rule (evaluated against the same values)
// are skipped entirely; a hidden required field never blocks submission.
// FILE values get a presence check here; size and type constraints are
// enforced separately by ValidateFile.
func (s Schema) Validate(values map[string]any) []FieldError {
	var errs []FieldError
	for _, f := range s.fields {
		if !Evaluate(f.Conditional, values, s.fields) {
			continue
		}
		if msg := validateField(f, values); msg != "" {
			errs = append(errs, FieldError{
				FieldID: f.ID.String(),
				Label:   f.Label,
				Step:    f.Step,
				Message: msg,
			})
		}
	}
	return errs
}

func validateField(f models.FieldDefinition, values map[string]any) string {
	raw, present := values[f.ID.String()]
	if raw == nil {
		present = false
	}

	switch f.Type {
	case models.FieldText, models.FieldTextarea, models.FieldPhone:
		if f.Required && strings.TrimSpace(stringValue(raw)) == "" {
			return fmt.Sprintf("%s is required", f.Label)
		}

	case models.FieldEmail:
		v := strings.TrimSpace(stringValue(raw))
		if v == "" {
			if f.Required {
				return fmt.Sprintf("%s is required", f.Label)
			}
			return ""
		}
		if !emailPattern.MatchString(v) {
			return fmt.Sprintf("%s must be a valid email address", f.Label)
		}

	case models.FieldNumber:
		v := strings.TrimSpace(stringValue(raw))
		if v == "" {
			if f.Required {
				return fmt.Sprintf("%s is required", f.Label)
			}
			return ""
		}
		if _, ok := numberValue(raw); !ok {
			return fmt.Sprintf("%s must be a number", f.Label)
		}

	case models.FieldSelect, models.FieldRadio:
		v := stringValue(raw)
		if v == "" {
			if f.Required {
				return fmt.Sprintf("%s is required", f.Label)
			}
			return ""
		}
		// Missing options on an admin-authored SELECT degrades to an
		// empty-options rule: any required answer is rejected, never a panic.
		if !containsOption(f.Options, v) {
			return fmt.Sprintf("%s must be one of the listed options", f.Label)
		}

	case models.FieldCheckbox:
		checked := boolValue(raw)
		if f.Required && !checked {
			return fmt.Sprintf("%s must be checked", f.Label)
		}

	case models.FieldFile:
		if f.Required && !present {
			return fmt.Sprintf("%s is required", f.Label)
		}

	case models.FieldDate:
		v := strings.TrimSpace(stringValue(raw))
		if v == "" {
			if f.Required {
				return fmt.Sprintf("%s is required", f.Label)
			}
			return ""
		}
		if !parseableDate(v) {
			return fmt.Sprintf("%s must be a valid date", f.Label)
		}

	default:
		// Unknown type from older admin data: optional free text.
	}
	return ""
}

func containsOption(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

func parseableDate(v string) bool {
	if _, err := time.Parse("2006-01-02", v); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, v)
	return err == nil
}

func stringValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return coerceString(raw)
	}
}

func numberValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func boolValue(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}
