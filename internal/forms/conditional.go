package forms

import (
	"fmt"
	"strings"

	"github.com/brightpath-foundation/backend/internal/models"
)

// Evaluate decides whether a field with the given rule is visible under the
// current in-progress values. A nil rule is always visible.
//
// Evaluation is single-hop: the dependency's raw stored value is consulted
// even when the dependency itself is hidden by its own rule. An unresolvable
// dependency reads as undefined, which hides the field for every operator
// except not_equals (a missing value differs from any expected value).
func Evaluate(rule *models.ConditionalRule, values map[string]any, fields []models.FieldDefinition) bool {
	if rule == nil {
		return true
	}
	raw, ok := values[rule.DependsOnFieldID]
	if raw == nil {
		ok = false
	}
	switch rule.Operator {
	case models.OpEquals:
		return ok && coerceString(raw) == rule.Value
	case models.OpNotEquals:
		return !ok || coerceString(raw) != rule.Value
	case models.OpContains:
		return ok && strings.Contains(coerceString(raw), rule.Value)
	case models.OpIsChecked:
		return ok && isChecked(raw, dependencyType(rule.DependsOnFieldID, fields))
	}
	return false
}

// VisibleFields filters fields to those currently visible under values.
func VisibleFields(fields []models.FieldDefinition, values map[string]any) []models.FieldDefinition {
	out := make([]models.FieldDefinition, 0, len(fields))
	for _, f := range fields {
		if Evaluate(f.Conditional, values, fields) {
			out = append(out, f)
		}
	}
	return out
}

// StepFields returns the visible fields assigned to the given wizard step.
func StepFields(fields []models.FieldDefinition, values map[string]any, step int) []models.FieldDefinition {
	out := make([]models.FieldDefinition, 0, len(fields))
	for _, f := range VisibleFields(fields, values) {
		if f.Step == step {
			out = append(out, f)
		}
	}
	return out
}

func dependencyType(fieldID string, fields []models.FieldDefinition) models.FieldType {
	for _, f := range fields {
		if f.ID.String() == fieldID {
			return f.Type
		}
	}
	return ""
}

func isChecked(raw any, depType models.FieldType) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		// Checkbox values arriving over the wire as strings.
		if depType == models.FieldCheckbox || depType == "" {
			return v == "true"
		}
	}
	return false
}

func coerceString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		// JSON numbers: render 3 as "3", not "3.000000".
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}
