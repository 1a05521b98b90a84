package forms

import (
	"context"
	"errors"

	"github.com/brightpath-foundation/backend/internal/models"
)

// State is a named wizard state. Modeling the controller as an explicit
// machine makes illegal combinations (submitted with pending errors,
// double-submit) unrepresentable.
type State int

const (
	StateEditing State = iota
	StateSubmitting
	StateSubmitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ErrSubmitLocked is returned when Submit is called while a submission is in
// flight or after the wizard reached its terminal state.
var ErrSubmitLocked = errors.New("submission not allowed in current state")

// SubmitFunc delivers the merged, schema-valid values to the server boundary.
type SubmitFunc func(ctx context.Context, values map[string]any) error

// Wizard drives a multi-step dynamic form: current step, field values, file
// metadata, visibility recomputation and submission. It runs single-threaded
// in a UI event loop; it is not safe for concurrent use.
type Wizard struct {
	fields     []models.FieldDefinition
	totalSteps int

	state       State
	step        int
	values      map[string]any
	files       map[string]models.FileValue
	fieldErrors []FieldError
	message     string

	started bool
	onStart func()
}

// NewWizard builds a wizard from a registration form. onStart fires exactly
// once, on the first value change, as the "registration started" analytics
// signal; it may be nil.
func NewWizard(form models.RegistrationForm, onStart func()) *Wizard {
	total := form.TotalSteps
	if total < 1 {
		total = 1
	}
	// Older data may place fields beyond the configured total; clamp up so
	// every field stays reachable.
	for _, f := range form.Fields {
		if f.Step > total {
			total = f.Step
		}
	}
	return &Wizard{
		fields:     form.Fields,
		totalSteps: total,
		state:      StateEditing,
		step:       1,
		values:     make(map[string]any),
		files:      make(map[string]models.FileValue),
		onStart:    onStart,
	}
}

// State returns the current machine state.
func (w *Wizard) State() State { return w.state }

// Step returns the current step, 1-based.
func (w *Wizard) Step() int { return w.step }

// TotalSteps returns the number of wizard pages.
func (w *Wizard) TotalSteps() int { return w.totalSteps }

// Errors returns per-field errors from the last failed validation.
func (w *Wizard) Errors() []FieldError { return w.fieldErrors }

// Message returns the form-level error message, if any.
func (w *Wizard) Message() string { return w.message }

// Value returns the current value for a field.
func (w *Wizard) Value(fieldID string) (any, bool) {
	v, ok := w.values[fieldID]
	return v, ok
}

// SetValue records an input change. The first change fires the one-time
// started signal. Editing after a failed submit returns to Editing without
// resetting anything; changes are ignored once submitted or in flight.
func (w *Wizard) SetValue(fieldID string, value any) {
	if w.state == StateSubmitted || w.state == StateSubmitting {
		return
	}
	w.fireStarted()
	w.values[fieldID] = value
	if w.state == StateFailed {
		w.state = StateEditing
		w.message = ""
	}
}

// SetFile records file metadata for a FILE field after checking the field's
// declared constraints, giving the visitor fast feedback. The same check runs
// again server-side at submit.
func (w *Wizard) SetFile(fieldID string, file models.FileValue) error {
	if w.state == StateSubmitted || w.state == StateSubmitting {
		return ErrSubmitLocked
	}
	w.fireStarted()
	for _, f := range w.fields {
		if f.ID.String() == fieldID {
			if err := ValidateFile(f, file); err != nil {
				return err
			}
			break
		}
	}
	w.files[fieldID] = file
	if w.state == StateFailed {
		w.state = StateEditing
		w.message = ""
	}
	return nil
}

// Next advances one step, capped at the last step. Forward navigation is not
// gated on per-step validation; everything is validated at final submit.
func (w *Wizard) Next() {
	if w.step < w.totalSteps {
		w.step++
	}
}

// Back goes one step back, floored at 1.
func (w *Wizard) Back() {
	if w.step > 1 {
		w.step--
	}
}

// OnLastStep reports whether the wizard is on its final page.
func (w *Wizard) OnLastStep() bool { return w.step == w.totalSteps }

// VisibleFields returns all fields visible under the current values.
func (w *Wizard) VisibleFields() []models.FieldDefinition {
	return VisibleFields(w.fields, w.values)
}

// CurrentStepFields returns the visible fields on the current step.
func (w *Wizard) CurrentStepFields() []models.FieldDefinition {
	return StepFields(w.fields, w.values, w.step)
}

// Submit validates the merged values holistically and, on pass, hands them to
// submit. Validation failure moves to Failed with per-field errors and leaves
// every entered value in place. A submit error (including a timed-out
// network round trip) also moves to Failed so the flow can recover; only
// success reaches the terminal Submitted state.
func (w *Wizard) Submit(ctx context.Context, submit SubmitFunc) error {
	if w.state == StateSubmitting || w.state == StateSubmitted {
		return ErrSubmitLocked
	}

	values := w.MergedValues()
	schema := Generate(w.fields)
	if errs := schema.Validate(values); len(errs) > 0 {
		w.state = StateFailed
		w.fieldErrors = errs
		w.message = ""
		return &ValidationError{Fields: errs}
	}

	w.state = StateSubmitting
	w.fieldErrors = nil
	if err := submit(ctx, values); err != nil {
		w.state = StateFailed
		var ve *ValidationError
		if errors.As(err, &ve) {
			w.fieldErrors = ve.Fields
		}
		w.message = UserMessage(err)
		return err
	}
	w.state = StateSubmitted
	w.message = ""
	return nil
}

// MergedValues returns form values with file metadata folded in, keyed by
// field ID. The returned map is a copy.
func (w *Wizard) MergedValues() map[string]any {
	merged := make(map[string]any, len(w.values)+len(w.files))
	for k, v := range w.values {
		merged[k] = v
	}
	for k, f := range w.files {
		merged[k] = f
	}
	return merged
}

func (w *Wizard) fireStarted() {
	if w.started {
		return
	}
	w.started = true
	if w.onStart != nil {
		w.onStart()
	}
}
