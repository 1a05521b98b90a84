package formfields

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/brightpath-foundation/backend/internal/models"
)

// ValidateDefinition checks a field definition against its form before it is
// stored. existing holds the form's current fields (excluding the one being
// edited) so conditional rules can be checked for dangling or self references.
func ValidateDefinition(f *models.FieldDefinition, existing []models.FieldDefinition, totalSteps int) error {
	if strings.TrimSpace(f.Label) == "" {
		return fmt.Errorf("label is required")
	}
	if !f.Type.Valid() {
		return fmt.Errorf("unknown field type %q", f.Type)
	}
	if f.Step < 1 {
		return fmt.Errorf("step must be at least 1")
	}
	if f.Step > totalSteps {
		return fmt.Errorf("step %d exceeds the form's %d steps", f.Step, totalSteps)
	}
	if f.Type.HasOptions() {
		if len(trimOptions(f.Options)) == 0 {
			return fmt.Errorf("%s fields need at least one option", strings.ToLower(string(f.Type)))
		}
	}
	if f.Type == models.FieldFile {
		if f.MaxFileSize < 0 {
			return fmt.Errorf("max file size cannot be negative")
		}
	}
	if f.Conditional != nil {
		if err := validateRule(f, existing); err != nil {
			return err
		}
	}
	return nil
}

func validateRule(f *models.FieldDefinition, existing []models.FieldDefinition) error {
	rule := f.Conditional
	if !rule.Operator.Valid() {
		return fmt.Errorf("unknown conditional operator %q", rule.Operator)
	}
	if rule.DependsOnFieldID == "" {
		return fmt.Errorf("conditional rule needs a field to depend on")
	}
	if f.ID != uuid.Nil && rule.DependsOnFieldID == f.ID.String() {
		return fmt.Errorf("a field cannot depend on itself")
	}
	for _, other := range existing {
		if other.ID.String() == rule.DependsOnFieldID {
			if rule.Operator == models.OpIsChecked && other.Type != models.FieldCheckbox {
				return fmt.Errorf("is_checked requires a checkbox dependency, %q is %s", other.Label, other.Type)
			}
			if cyclesBack(f, other, existing) {
				return fmt.Errorf("conditional rule on %q creates a dependency cycle", f.Label)
			}
			return nil
		}
	}
	return fmt.Errorf("conditional rule depends on a field that is not in this form")
}

// cyclesBack walks the dependency chain starting at the field f would depend
// on and reports whether it leads back to f. Visited IDs are tracked so a
// pre-existing cycle among other fields cannot loop the walk.
func cyclesBack(f *models.FieldDefinition, start models.FieldDefinition, existing []models.FieldDefinition) bool {
	if f.ID == uuid.Nil {
		return false
	}
	byID := make(map[string]models.FieldDefinition, len(existing))
	for _, e := range existing {
		byID[e.ID.String()] = e
	}
	seen := map[string]bool{start.ID.String(): true}
	cur := start
	for cur.Conditional != nil {
		next := cur.Conditional.DependsOnFieldID
		if next == f.ID.String() {
			return true
		}
		if seen[next] {
			return false
		}
		seen[next] = true
		n, ok := byID[next]
		if !ok {
			return false
		}
		cur = n
	}
	return false
}

func trimOptions(options []string) []string {
	out := options[:0:0]
	for _, o := range options {
		if s := strings.TrimSpace(o); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// MaxStep returns the highest step any field sits on, at least 1.
func MaxStep(fields []models.FieldDefinition) int {
	max := 1
	for _, f := range fields {
		if f.Step > max {
			max = f.Step
		}
	}
	return max
}
