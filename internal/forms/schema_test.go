package forms

import (
	"testing"

	"github.com/google/uuid"

	"github.com/brightpath-foundation/backend/internal/models"
)

func field(t models.FieldType, label string, required bool, step int) models.FieldDefinition {
	return models.FieldDefinition{
		ID:       uuid.New(),
		Label:    label,
		Type:     t,
		Required: required,
		Step:     step,
	}
}

func TestGenerate_MalformedDefinitionsNeverPanic(t *testing.T) {
	badSelect := field(models.FieldSelect, "Meal", true, 1) // no options
	unknown := field(models.FieldType("WIDGET"), "Mystery", true, 1)
	badRule := field(models.FieldText, "Broken", false, 1)
	badRule.Conditional = &models.ConditionalRule{
		DependsOnFieldID: "not-a-real-field",
		Operator:         models.Operator("frobnicate"),
	}

	schema := Generate([]models.FieldDefinition{badSelect, unknown, badRule})
	errs := schema.Validate(map[string]any{
		badSelect.ID.String(): "Veg",
		unknown.ID.String():   struct{ X int }{42},
	})

	// The empty-options SELECT rejects any answer instead of crashing.
	if len(errs) != 1 {
		t.Fatalf("errors = %d, want 1", len(errs))
	}
	if errs[0].FieldID != badSelect.ID.String() {
		t.Errorf("failing field = %s, want the select", errs[0].FieldID)
	}
}

func TestValidate_RequiredCheckbox(t *testing.T) {
	consent := field(models.FieldCheckbox, "Consent", true, 1)
	schema := Generate([]models.FieldDefinition{consent})

	for raw, wantErrs := range map[any]int{true: 0, false: 1} {
		errs := schema.Validate(map[string]any{consent.ID.String(): raw})
		if len(errs) != wantErrs {
			t.Errorf("checkbox %v: errors = %d, want %d", raw, len(errs), wantErrs)
		}
	}
	if errs := schema.Validate(map[string]any{}); len(errs) != 1 {
		t.Errorf("unchecked (absent) required checkbox: errors = %d, want 1", len(errs))
	}
}

func TestValidate_TextAndEmail(t *testing.T) {
	name := field(models.FieldText, "Name", true, 1)
	email := field(models.FieldEmail, "Email", true, 1)
	notes := field(models.FieldTextarea, "Notes", false, 1)
	schema := Generate([]models.FieldDefinition{name, email, notes})

	tests := []struct {
		name   string
		values map[string]any
		want   int
	}{
		{"all valid", map[string]any{name.ID.String(): "Ada", email.ID.String(): "ada@example.org"}, 0},
		{"empty optional ok", map[string]any{name.ID.String(): "Ada", email.ID.String(): "ada@example.org", notes.ID.String(): ""}, 0},
		{"blank required name", map[string]any{name.ID.String(): "   ", email.ID.String(): "ada@example.org"}, 1},
		{"bad email syntax", map[string]any{name.ID.String(): "Ada", email.ID.String(): "not-an-email"}, 1},
		{"everything missing", map[string]any{}, 2},
	}
	for _, tt := range tests {
		if errs := schema.Validate(tt.values); len(errs) != tt.want {
			t.Errorf("%s: errors = %d, want %d (%v)", tt.name, len(errs), tt.want, errs)
		}
	}
}

func TestValidate_NumberCoercion(t *testing.T) {
	age := field(models.FieldNumber, "Age", true, 1)
	schema := Generate([]models.FieldDefinition{age})

	for _, ok := range []any{float64(30), "30", " 27.5 ", 12} {
		if errs := schema.Validate(map[string]any{age.ID.String(): ok}); len(errs) != 0 {
			t.Errorf("number %v: unexpected errors %v", ok, errs)
		}
	}
	for _, bad := range []any{"thirty", "", nil} {
		if errs := schema.Validate(map[string]any{age.ID.String(): bad}); len(errs) != 1 {
			t.Errorf("number %v: errors = %d, want 1", bad, len(errs))
		}
	}
}

func TestValidate_SelectOptions(t *testing.T) {
	meal := field(models.FieldSelect, "Meal", true, 1)
	meal.Options = []string{"Veg", "Meat"}
	optional := field(models.FieldRadio, "Shirt", false, 1)
	optional.Options = []string{"S", "M", "L"}
	schema := Generate([]models.FieldDefinition{meal, optional})

	if errs := schema.Validate(map[string]any{meal.ID.String(): "Veg"}); len(errs) != 0 {
		t.Errorf("valid option: unexpected errors %v", errs)
	}
	if errs := schema.Validate(map[string]any{meal.ID.String(): "Fish"}); len(errs) != 1 {
		t.Errorf("off-list option: errors = %d, want 1", len(errs))
	}
	// Optional select left empty is fine.
	if errs := schema.Validate(map[string]any{meal.ID.String(): "Meat", optional.ID.String(): ""}); len(errs) != 0 {
		t.Errorf("empty optional radio: unexpected errors %v", errs)
	}
}

func TestValidate_HiddenRequiredFieldSkipped(t *testing.T) {
	attending := field(models.FieldCheckbox, "Attending", false, 1)
	dietary := field(models.FieldText, "Dietary needs", true, 1)
	dietary.Conditional = &models.ConditionalRule{
		DependsOnFieldID: attending.ID.String(),
		Operator:         models.OpIsChecked,
	}
	schema := Generate([]models.FieldDefinition{attending, dietary})

	// Hidden: required dietary field does not block.
	if errs := schema.Validate(map[string]any{attending.ID.String(): false}); len(errs) != 0 {
		t.Fatalf("hidden required field blocked submission: %v", errs)
	}
	// Visible: it does.
	errs := schema.Validate(map[string]any{attending.ID.String(): true})
	if len(errs) != 1 || errs[0].FieldID != dietary.ID.String() {
		t.Fatalf("visible required field: errors = %v, want dietary failure", errs)
	}
}

func TestValidate_ErrorIdentifiesStep(t *testing.T) {
	name := field(models.FieldText, "Name", true, 1)
	company := field(models.FieldText, "Company", true, 2)
	schema := Generate([]models.FieldDefinition{name, company})

	errs := schema.Validate(map[string]any{name.ID.String(): "Ada"})
	if len(errs) != 1 {
		t.Fatalf("errors = %d, want 1", len(errs))
	}
	if errs[0].Step != 2 || errs[0].FieldID != company.ID.String() {
		t.Errorf("error = %+v, want step-2 company failure", errs[0])
	}
}

func TestGenerate_BehavioralDeterminism(t *testing.T) {
	meal := field(models.FieldSelect, "Meal", true, 1)
	meal.Options = []string{"Veg", "Meat"}
	consent := field(models.FieldCheckbox, "Consent", true, 1)
	fields := []models.FieldDefinition{meal, consent}

	values := map[string]any{meal.ID.String(): "Fish", consent.ID.String(): false}
	a := Generate(fields).Validate(values)
	b := Generate(fields).Validate(values)
	if len(a) != len(b) {
		t.Fatalf("two generations disagree: %d vs %d errors", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("error %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
