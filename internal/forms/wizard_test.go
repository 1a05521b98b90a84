package forms

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-foundation/backend/internal/models"
)

func twoStepForm() (models.RegistrationForm, models.FieldDefinition, models.FieldDefinition) {
	name := field(models.FieldText, "Name", true, 1)
	company := field(models.FieldText, "Company", true, 2)
	form := models.RegistrationForm{
		TotalSteps: 2,
		Fields:     []models.FieldDefinition{name, company},
	}
	return form, name, company
}

func TestWizard_NavigationBounds(t *testing.T) {
	form, _, _ := twoStepForm()
	w := NewWizard(form, nil)

	assert.Equal(t, 1, w.Step())
	w.Back()
	assert.Equal(t, 1, w.Step(), "back from first step stays at 1")
	w.Next()
	assert.Equal(t, 2, w.Step())
	w.Next()
	assert.Equal(t, 2, w.Step(), "next past last step stays at total")
	assert.True(t, w.OnLastStep())
}

func TestWizard_TotalStepsClampedToFieldSteps(t *testing.T) {
	far := field(models.FieldText, "Late question", false, 3)
	form := models.RegistrationForm{TotalSteps: 2, Fields: []models.FieldDefinition{far}}
	w := NewWizard(form, nil)
	assert.Equal(t, 3, w.TotalSteps())
}

func TestWizard_StartedSignalFiresOnce(t *testing.T) {
	form, name, _ := twoStepForm()
	fired := 0
	w := NewWizard(form, func() { fired++ })

	w.SetValue(name.ID.String(), "A")
	w.SetValue(name.ID.String(), "Ad")
	w.SetValue(name.ID.String(), "Ada")
	assert.Equal(t, 1, fired, "started signal must not double-fire")
}

func TestWizard_SubmitRejectsMissingStepTwoField(t *testing.T) {
	form, name, company := twoStepForm()
	w := NewWizard(form, nil)
	w.SetValue(name.ID.String(), "Ada")
	w.Next()

	err := w.Submit(context.Background(), func(ctx context.Context, values map[string]any) error {
		t.Fatal("submit func must not run on validation failure")
		return nil
	})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Fields, 1)
	assert.Equal(t, company.ID.String(), ve.Fields[0].FieldID)
	assert.Equal(t, 2, ve.Fields[0].Step, "error must identify the step-2 field")
	assert.Equal(t, StateFailed, w.State())

	// Entered values survive the failure.
	v, ok := w.Value(name.ID.String())
	require.True(t, ok)
	assert.Equal(t, "Ada", v)
}

func TestWizard_SubmitSuccessIsTerminal(t *testing.T) {
	form, name, company := twoStepForm()
	w := NewWizard(form, nil)
	w.SetValue(name.ID.String(), "Ada")
	w.SetValue(company.ID.String(), "Brightpath")

	var got map[string]any
	err := w.Submit(context.Background(), func(ctx context.Context, values map[string]any) error {
		got = values
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, w.State())
	assert.Equal(t, "Ada", got[name.ID.String()])

	// No edit-and-resubmit path.
	w.SetValue(name.ID.String(), "Eve")
	v, _ := w.Value(name.ID.String())
	assert.Equal(t, "Ada", v, "terminal state ignores further input")
	assert.ErrorIs(t, w.Submit(context.Background(), nil), ErrSubmitLocked)
}

func TestWizard_ServerFailureIsRecoverable(t *testing.T) {
	form, name, company := twoStepForm()
	w := NewWizard(form, nil)
	w.SetValue(name.ID.String(), "Ada")
	w.SetValue(company.ID.String(), "Brightpath")

	err := w.Submit(context.Background(), func(ctx context.Context, values map[string]any) error {
		return ErrCapacityExceeded
	})
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, StateFailed, w.State())
	assert.Equal(t, "This event is fully booked.", w.Message())

	// Editing after failure re-enables the flow.
	w.SetValue(name.ID.String(), "Ada L.")
	assert.Equal(t, StateEditing, w.State())
	assert.Empty(t, w.Message())
}

func TestWizard_TimeoutSurfacesGenericError(t *testing.T) {
	form, name, company := twoStepForm()
	w := NewWizard(form, nil)
	w.SetValue(name.ID.String(), "Ada")
	w.SetValue(company.ID.String(), "Brightpath")

	err := w.Submit(context.Background(), func(ctx context.Context, values map[string]any) error {
		return context.DeadlineExceeded
	})
	require.Error(t, err)
	assert.Equal(t, StateFailed, w.State(), "a hung round trip must not lock the form")
	assert.Equal(t, "Something went wrong. Please try again.", w.Message())
}

func TestWizard_FileIntakeValidation(t *testing.T) {
	upload := field(models.FieldFile, "CV", true, 1)
	upload.MaxFileSize = 1024
	upload.AcceptedTypes = ".pdf"
	form := models.RegistrationForm{TotalSteps: 1, Fields: []models.FieldDefinition{upload}}
	w := NewWizard(form, nil)

	err := w.SetFile(upload.ID.String(), models.FileValue{Name: "cv.pdf", Size: 4096, ContentType: "application/pdf"})
	var fe *FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, CodeFileTooLarge, fe.Code)

	err = w.SetFile(upload.ID.String(), models.FileValue{Name: "cv.docx", Size: 512})
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, CodeUnsupportedFileType, fe.Code)

	require.NoError(t, w.SetFile(upload.ID.String(), models.FileValue{Name: "cv.pdf", Size: 512, ContentType: "application/pdf"}))
	merged := w.MergedValues()
	_, ok := merged[upload.ID.String()]
	assert.True(t, ok, "accepted file metadata is merged into submit values")
}

func TestWizard_CurrentStepFieldsFollowVisibility(t *testing.T) {
	a := field(models.FieldText, "Attending?", false, 1)
	b := field(models.FieldText, "Guests", false, 1)
	b.Conditional = &models.ConditionalRule{DependsOnFieldID: a.ID.String(), Operator: models.OpEquals, Value: "yes"}
	c := field(models.FieldText, "Company", false, 2)
	form := models.RegistrationForm{TotalSteps: 2, Fields: []models.FieldDefinition{a, b, c}}
	w := NewWizard(form, nil)

	require.Len(t, w.CurrentStepFields(), 1)
	w.SetValue(a.ID.String(), "yes")
	require.Len(t, w.CurrentStepFields(), 2)
	w.SetValue(a.ID.String(), "no")
	require.Len(t, w.CurrentStepFields(), 1, "visibility recomputes immediately")

	w.Next()
	fields := w.CurrentStepFields()
	require.Len(t, fields, 1)
	assert.Equal(t, c.ID, fields[0].ID)
}
