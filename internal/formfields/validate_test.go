package formfields

import (
	"testing"

	"github.com/google/uuid"

	"github.com/brightpath-foundation/backend/internal/models"
)

func TestValidateDefinitionRejectsUnknownType(t *testing.T) {
	def := &models.FieldDefinition{Label: "Anything", Type: models.FieldType("RANGE"), Step: 1}
	if err := ValidateDefinition(def, nil, 1); err == nil {
		t.Fatal("expected error for unknown field type")
	}
}

func TestValidateDefinitionOptionsRequired(t *testing.T) {
	for _, typ := range []models.FieldType{models.FieldSelect, models.FieldRadio} {
		def := &models.FieldDefinition{Label: "Pick one", Type: typ, Step: 1, Options: []string{"  ", ""}}
		if err := ValidateDefinition(def, nil, 1); err == nil {
			t.Errorf("%s with only blank options should be rejected", typ)
		}
		def.Options = []string{"Yes", "No"}
		if err := ValidateDefinition(def, nil, 1); err != nil {
			t.Errorf("%s with options: unexpected error %v", typ, err)
		}
	}
}

func TestValidateDefinitionStepBounds(t *testing.T) {
	def := &models.FieldDefinition{Label: "Name", Type: models.FieldText, Step: 3}
	if err := ValidateDefinition(def, nil, 2); err == nil {
		t.Fatal("step beyond total_steps should be rejected")
	}
	if err := ValidateDefinition(def, nil, 3); err != nil {
		t.Fatalf("step within bounds: unexpected error %v", err)
	}
}

func TestValidateDefinitionConditionalRules(t *testing.T) {
	dep := models.FieldDefinition{
		ID:    uuid.New(),
		Label: "Needs accommodation",
		Type:  models.FieldCheckbox,
		Step:  1,
	}
	textDep := models.FieldDefinition{
		ID:    uuid.New(),
		Label: "City",
		Type:  models.FieldText,
		Step:  1,
	}
	existing := []models.FieldDefinition{dep, textDep}

	t.Run("valid is_checked dependency", func(t *testing.T) {
		def := &models.FieldDefinition{
			Label: "Room preference", Type: models.FieldText, Step: 1,
			Conditional: &models.ConditionalRule{DependsOnFieldID: dep.ID.String(), Operator: models.OpIsChecked},
		}
		if err := ValidateDefinition(def, existing, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("is_checked on non-checkbox", func(t *testing.T) {
		def := &models.FieldDefinition{
			Label: "Room preference", Type: models.FieldText, Step: 1,
			Conditional: &models.ConditionalRule{DependsOnFieldID: textDep.ID.String(), Operator: models.OpIsChecked},
		}
		if err := ValidateDefinition(def, existing, 1); err == nil {
			t.Fatal("is_checked against a text field should be rejected")
		}
	})

	t.Run("dangling dependency", func(t *testing.T) {
		def := &models.FieldDefinition{
			Label: "Room preference", Type: models.FieldText, Step: 1,
			Conditional: &models.ConditionalRule{DependsOnFieldID: uuid.NewString(), Operator: models.OpEquals, Value: "x"},
		}
		if err := ValidateDefinition(def, existing, 1); err == nil {
			t.Fatal("dependency outside the form should be rejected")
		}
	})

	t.Run("self dependency", func(t *testing.T) {
		id := uuid.New()
		def := &models.FieldDefinition{
			ID: id, Label: "Loop", Type: models.FieldText, Step: 1,
			Conditional: &models.ConditionalRule{DependsOnFieldID: id.String(), Operator: models.OpEquals, Value: "x"},
		}
		if err := ValidateDefinition(def, existing, 1); err == nil {
			t.Fatal("self dependency should be rejected")
		}
	})

	t.Run("two-field cycle", func(t *testing.T) {
		aID := uuid.New()
		b := models.FieldDefinition{
			ID: uuid.New(), Label: "B", Type: models.FieldText, Step: 1,
			Conditional: &models.ConditionalRule{DependsOnFieldID: aID.String(), Operator: models.OpEquals, Value: "x"},
		}
		a := &models.FieldDefinition{
			ID: aID, Label: "A", Type: models.FieldText, Step: 1,
			Conditional: &models.ConditionalRule{DependsOnFieldID: b.ID.String(), Operator: models.OpEquals, Value: "y"},
		}
		if err := ValidateDefinition(a, []models.FieldDefinition{b}, 1); err == nil {
			t.Fatal("A depending on B while B depends on A should be rejected")
		}
	})

	t.Run("three-field cycle", func(t *testing.T) {
		aID := uuid.New()
		c := models.FieldDefinition{
			ID: uuid.New(), Label: "C", Type: models.FieldText, Step: 1,
			Conditional: &models.ConditionalRule{DependsOnFieldID: aID.String(), Operator: models.OpEquals, Value: "x"},
		}
		b := models.FieldDefinition{
			ID: uuid.New(), Label: "B", Type: models.FieldText, Step: 1,
			Conditional: &models.ConditionalRule{DependsOnFieldID: c.ID.String(), Operator: models.OpEquals, Value: "x"},
		}
		a := &models.FieldDefinition{
			ID: aID, Label: "A", Type: models.FieldText, Step: 1,
			Conditional: &models.ConditionalRule{DependsOnFieldID: b.ID.String(), Operator: models.OpEquals, Value: "x"},
		}
		if err := ValidateDefinition(a, []models.FieldDefinition{b, c}, 1); err == nil {
			t.Fatal("a cycle through three fields should be rejected")
		}
	})

	t.Run("acyclic chain is allowed", func(t *testing.T) {
		c := models.FieldDefinition{ID: uuid.New(), Label: "C", Type: models.FieldText, Step: 1}
		b := models.FieldDefinition{
			ID: uuid.New(), Label: "B", Type: models.FieldText, Step: 1,
			Conditional: &models.ConditionalRule{DependsOnFieldID: c.ID.String(), Operator: models.OpEquals, Value: "x"},
		}
		a := &models.FieldDefinition{
			ID: uuid.New(), Label: "A", Type: models.FieldText, Step: 1,
			Conditional: &models.ConditionalRule{DependsOnFieldID: b.ID.String(), Operator: models.OpEquals, Value: "x"},
		}
		if err := ValidateDefinition(a, []models.FieldDefinition{b, c}, 1); err != nil {
			t.Fatalf("chain without a cycle: unexpected error %v", err)
		}
	})

	t.Run("unknown operator", func(t *testing.T) {
		def := &models.FieldDefinition{
			Label: "Room preference", Type: models.FieldText, Step: 1,
			Conditional: &models.ConditionalRule{DependsOnFieldID: dep.ID.String(), Operator: models.Operator("matches")},
		}
		if err := ValidateDefinition(def, existing, 1); err == nil {
			t.Fatal("unknown operator should be rejected")
		}
	})
}

func TestMaxStep(t *testing.T) {
	if got := MaxStep(nil); got != 1 {
		t.Fatalf("empty form: got %d, want 1", got)
	}
	fields := []models.FieldDefinition{{Step: 1}, {Step: 3}, {Step: 2}}
	if got := MaxStep(fields); got != 3 {
		t.Fatalf("got %d, want 3", got)
	}
}
