// Package forms is the dynamic registration form engine: schema generation,
// conditional visibility, file constraints and the multi-step wizard state
// machine. Everything here is pure and shared by the public rendering payload
// and the server submission boundary, so the two cannot drift.
package forms

import (
	"context"
	"errors"
	"fmt"
)

// Code is a stable machine-readable error code surfaced to API clients.
type Code string

const (
	CodeValidationFailed    Code = "VALIDATION_FAILED"
	CodeFileTooLarge        Code = "FILE_TOO_LARGE"
	CodeUnsupportedFileType Code = "UNSUPPORTED_FILE_TYPE"
	CodeCapacityExceeded    Code = "CAPACITY_EXCEEDED"
	CodeFormInactive        Code = "FORM_INACTIVE"
	CodeNotFound            Code = "NOT_FOUND"
	CodeInternal            Code = "INTERNAL"
)

var (
	// ErrCapacityExceeded means the event is full; terminal for this attempt.
	ErrCapacityExceeded = errors.New("event is at capacity")
	// ErrFormInactive means registration is closed or the form is disabled.
	ErrFormInactive = errors.New("registration is not open")
	// ErrNotFound means the event or form does not exist.
	ErrNotFound = errors.New("not found")
)

// FieldError is a per-field validation failure.
type FieldError struct {
	FieldID string `json:"field_id"`
	Label   string `json:"label"`
	Step    int    `json:"step"`
	Message string `json:"message"`
}

// ValidationError carries all field-level failures from one validation pass.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

// FileError is a file-constraint failure for a single FILE field.
type FileError struct {
	Code    Code
	FieldID string
	Message string
}

func (e *FileError) Error() string { return e.Message }

// CodeFor maps an error from the registration flow to its stable code.
// Unmatched errors are INTERNAL; nothing is ever silently swallowed.
func CodeFor(err error) Code {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return CodeValidationFailed
	}
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch {
	case errors.Is(err, ErrCapacityExceeded):
		return CodeCapacityExceeded
	case errors.Is(err, ErrFormInactive):
		return CodeFormInactive
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return CodeInternal
	}
	return CodeInternal
}

// UserMessage returns the human-readable message shown for an error.
func UserMessage(err error) string {
	switch CodeFor(err) {
	case CodeValidationFailed:
		return "Please correct the highlighted fields."
	case CodeFileTooLarge:
		return "The selected file is too large."
	case CodeUnsupportedFileType:
		return "The selected file type is not accepted."
	case CodeCapacityExceeded:
		return "This event is fully booked."
	case CodeFormInactive:
		return "Registration for this event is currently closed."
	case CodeNotFound:
		return "This event could not be found."
	}
	return "Something went wrong. Please try again."
}
